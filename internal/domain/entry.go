package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus represents the status of a waitlist entry
type EntryStatus string

const (
	EntryStatusActive    EntryStatus = "ACTIVE"
	EntryStatusPaused    EntryStatus = "PAUSED"
	EntryStatusOffered   EntryStatus = "OFFERED"
	EntryStatusAccepted  EntryStatus = "ACCEPTED"
	EntryStatusEnrolled  EntryStatus = "ENROLLED"
	EntryStatusWithdrawn EntryStatus = "WITHDRAWN"
)

// IsValid checks if the entry status is valid
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusActive, EntryStatusPaused, EntryStatusOffered,
		EntryStatusAccepted, EntryStatusEnrolled, EntryStatusWithdrawn:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s EntryStatus) CanTransitionTo(target EntryStatus) bool {
	validTransitions := map[EntryStatus][]EntryStatus{
		EntryStatusActive:    {EntryStatusPaused, EntryStatusOffered, EntryStatusWithdrawn},
		EntryStatusPaused:    {EntryStatusActive, EntryStatusWithdrawn},
		EntryStatusOffered:   {EntryStatusActive, EntryStatusAccepted},
		EntryStatusAccepted:  {EntryStatusEnrolled, EntryStatusWithdrawn},
		EntryStatusEnrolled:  {}, // Terminal state
		EntryStatusWithdrawn: {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// WaitlistEntry is a child's place in the queue of one daycare cohort.
type WaitlistEntry struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	DaycareID uuid.UUID   `json:"daycare_id" gorm:"type:uuid;not null;index:idx_entry_scope"`
	ProgramID *uuid.UUID  `json:"program_id,omitempty" gorm:"type:uuid;index:idx_entry_scope"`
	ChildID   uuid.UUID   `json:"child_id" gorm:"type:uuid;not null"`
	ParentID  uuid.UUID   `json:"parent_id" gorm:"type:uuid;not null;index"`
	Status    EntryStatus `json:"status" gorm:"type:varchar(20);not null;index"`

	Position      int       `json:"position" gorm:"not null"`
	PriorityScore int       `json:"priority_score" gorm:"not null"`
	JoinedAt      time.Time `json:"joined_at" gorm:"not null"`

	HasSiblingEnrolled      bool `json:"has_sibling_enrolled"`
	IsStaffChild            bool `json:"is_staff_child"`
	InServiceArea           bool `json:"in_service_area"`
	HasSubsidyApproval      bool `json:"has_subsidy_approval"`
	HasCorporatePartnership bool `json:"has_corporate_partnership"`
	HasSpecialNeeds         bool `json:"has_special_needs"`

	ProviderTags StringList `json:"provider_tags" gorm:"type:jsonb"`

	OfferAttempts      int        `json:"offer_attempts" gorm:"not null"`
	EstimatedWaitDays  *int       `json:"estimated_wait_days,omitempty"`
	PreferredStartDate *time.Time `json:"preferred_start_date,omitempty"`
	LastOfferedAt      *time.Time `json:"last_offered_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WaitlistEntry) TableName() string { return "waitlist_entries" }

// Scope returns the cohort the entry is ranked in.
func (e *WaitlistEntry) Scope() Scope {
	return Scope{DaycareID: e.DaycareID, ProgramID: e.ProgramID}
}

// DaysOnWaitlist counts whole days since the entry joined.
func (e *WaitlistEntry) DaysOnWaitlist(now time.Time) int {
	if now.Before(e.JoinedAt) {
		return 0
	}
	return int(now.Sub(e.JoinedAt).Hours() / 24)
}

// IsActive returns true if the entry takes part in ranking
func (e *WaitlistEntry) IsActive() bool {
	return e.Status == EntryStatusActive
}
