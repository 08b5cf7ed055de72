package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a recorded mutation.
type AuditAction string

const (
	AuditOfferSent          AuditAction = "OFFER_SENT"
	AuditOfferAccepted      AuditAction = "OFFER_ACCEPTED"
	AuditOfferDeclined      AuditAction = "OFFER_DECLINED"
	AuditOfferExpired       AuditAction = "OFFER_EXPIRED"
	AuditPositionChanged    AuditAction = "POSITION_CHANGED"
	AuditCampaignCreated    AuditAction = "CAMPAIGN_CREATED"
	AuditCampaignExecuted   AuditAction = "CAMPAIGN_EXECUTED"
	AuditCampaignCompleted  AuditAction = "CAMPAIGN_COMPLETED"
	AuditCampaignCancelled  AuditAction = "CAMPAIGN_CANCELLED"
	AuditCapacityUpdated    AuditAction = "CAPACITY_UPDATED"
	AuditRuleCreated        AuditAction = "RULE_CREATED"
	AuditRuleUpdated        AuditAction = "RULE_UPDATED"
	AuditEntryStatusChanged AuditAction = "ENTRY_STATUS_CHANGED"
	AuditEntryEnrolled      AuditAction = "ENTRY_ENROLLED"
)

const (
	EntityEntry    = "waitlist_entry"
	EntityOffer    = "waitlist_offer"
	EntityCampaign = "waitlist_campaign"
	EntityCapacity = "daycare_capacity"
	EntityRule     = "priority_rule"
)

// AuditLog is an append-only record of a state change.
type AuditLog struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Action      AuditAction `json:"action" gorm:"type:varchar(40);not null;index"`
	EntityType  string      `json:"entity_type" gorm:"type:varchar(40);not null"`
	EntityID    uuid.UUID   `json:"entity_id" gorm:"type:uuid;not null;index"`
	DaycareID   uuid.UUID   `json:"daycare_id" gorm:"type:uuid;not null;index"`
	PerformedBy *uuid.UUID  `json:"performed_by,omitempty" gorm:"type:uuid"`
	OldValue    JSONMap     `json:"old_value,omitempty" gorm:"type:jsonb"`
	NewValue    JSONMap     `json:"new_value,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (AuditLog) TableName() string { return "waitlist_audit_logs" }
