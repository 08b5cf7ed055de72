package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeOfferSent       NotificationType = "WAITLIST_OFFER_SENT"
	NotificationTypeOfferReminder   NotificationType = "WAITLIST_OFFER_REMINDER"
	NotificationTypeOfferExpired    NotificationType = "WAITLIST_OFFER_EXPIRED"
	NotificationTypeOfferAccepted   NotificationType = "WAITLIST_OFFER_ACCEPTED"
	NotificationTypeOfferDeclined   NotificationType = "WAITLIST_OFFER_DECLINED"
	NotificationTypePositionChanged NotificationType = "WAITLIST_POSITION_UPDATE"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// Notification is the message handed to the delivery pipeline. Delivery
// (email, push) happens downstream of the topic.
type Notification struct {
	ID       uuid.UUID            `json:"id"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`

	RecipientID uuid.UUID `json:"recipient_id"`
	DaycareID   uuid.UUID `json:"daycare_id"`

	Subject string                 `json:"subject"`
	Data    map[string]interface{} `json:"data,omitempty"`

	EntryID    *uuid.UUID `json:"entry_id,omitempty"`
	OfferID    *uuid.UUID `json:"offer_id,omitempty"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PartitionKey keeps one family's messages ordered on a single partition.
func (n *Notification) PartitionKey() string {
	return n.RecipientID.String()
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
