package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferResponse is the parent's answer to an offer.
type OfferResponse string

const (
	OfferResponsePending  OfferResponse = "PENDING"
	OfferResponseAccepted OfferResponse = "ACCEPTED"
	OfferResponseDeclined OfferResponse = "DECLINED"
	OfferResponseExpired  OfferResponse = "EXPIRED"
)

func (r OfferResponse) IsValid() bool {
	switch r {
	case OfferResponsePending, OfferResponseAccepted, OfferResponseDeclined, OfferResponseExpired:
		return true
	default:
		return false
	}
}

// WaitlistOffer is a time-boxed invitation to take a spot.
type WaitlistOffer struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	EntryID    uuid.UUID  `json:"entry_id" gorm:"type:uuid;not null;index"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty" gorm:"type:uuid;index"`
	DaycareID  uuid.UUID  `json:"daycare_id" gorm:"type:uuid;not null;index:idx_offer_scope"`
	ProgramID  *uuid.UUID `json:"program_id,omitempty" gorm:"type:uuid;index:idx_offer_scope"`
	ParentID   uuid.UUID  `json:"parent_id" gorm:"type:uuid;not null"`

	SpotAvailableDate time.Time     `json:"spot_available_date" gorm:"not null"`
	OfferExpiresAt    time.Time     `json:"offer_expires_at" gorm:"not null;index"`
	Response          OfferResponse `json:"response" gorm:"type:varchar(20);not null;index"`
	RespondedAt       *time.Time    `json:"responded_at,omitempty"`
	ResponseNotes     *string       `json:"response_notes,omitempty" gorm:"type:text"`

	PriorityAtOffer int `json:"priority_at_offer"`
	PositionAtOffer int `json:"position_at_offer"`

	DepositRequired bool            `json:"deposit_required"`
	DepositAmount   decimal.Decimal `json:"deposit_amount" gorm:"type:decimal(10,2)"`
	DepositPaid     bool            `json:"deposit_paid"`

	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by" gorm:"type:uuid"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (WaitlistOffer) TableName() string { return "waitlist_offers" }

func (o *WaitlistOffer) Scope() Scope {
	return Scope{DaycareID: o.DaycareID, ProgramID: o.ProgramID}
}

// IsExpired reports whether the response window has closed at now.
func (o *WaitlistOffer) IsExpired(now time.Time) bool {
	return !now.Before(o.OfferExpiresAt)
}

// IsOutstanding is true while the offer still awaits an answer and can be answered.
func (o *WaitlistOffer) IsOutstanding(now time.Time) bool {
	return o.Response == OfferResponsePending && !o.IsExpired(now)
}
