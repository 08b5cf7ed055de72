package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents where a campaign is in its lifecycle
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusActive    CampaignStatus = "ACTIVE"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
)

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	validTransitions := map[CampaignStatus][]CampaignStatus{
		CampaignStatusDraft:     {CampaignStatusActive, CampaignStatusCancelled},
		CampaignStatusActive:    {CampaignStatusCompleted, CampaignStatusCancelled},
		CampaignStatusCompleted: {},
		CampaignStatusCancelled: {},
	}
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for campaigns that can no longer send offers.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusCancelled
}

// WaitlistCampaign distributes a batch of open spots as offers.
type WaitlistCampaign struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DaycareID   uuid.UUID      `json:"daycare_id" gorm:"type:uuid;not null;index:idx_campaign_scope"`
	ProgramID   *uuid.UUID     `json:"program_id,omitempty" gorm:"type:uuid;index:idx_campaign_scope"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Status      CampaignStatus `json:"status" gorm:"type:varchar(20);not null;index"`

	SpotsAvailable   int       `json:"spots_available" gorm:"not null"`
	SpotsRemaining   int       `json:"spots_remaining" gorm:"not null"`
	OfferWindowHours int       `json:"offer_window_hours" gorm:"not null"`
	MaxOfferAttempts int       `json:"max_offer_attempts" gorm:"not null"`
	SpotStartDate    time.Time `json:"spot_start_date" gorm:"not null"`

	TotalOffersSent int `json:"total_offers_sent"`
	TotalAccepted   int `json:"total_accepted"`
	TotalDeclined   int `json:"total_declined"`
	TotalExpired    int `json:"total_expired"`

	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	ExecutedBy  *uuid.UUID `json:"executed_by,omitempty" gorm:"type:uuid"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by" gorm:"type:uuid"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (WaitlistCampaign) TableName() string { return "waitlist_campaigns" }

func (c *WaitlistCampaign) Scope() Scope {
	return Scope{DaycareID: c.DaycareID, ProgramID: c.ProgramID}
}
