package capacity

import (
	"time"

	"carequeue/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a read-only view of a cohort's slots.
type Status struct {
	Scope          domain.Scope    `json:"scope"`
	TotalCapacity  int             `json:"total_capacity"`
	EnrolledSlots  int             `json:"enrolled_slots"`
	ReservedSlots  int             `json:"reserved_slots"`
	AvailableSlots int             `json:"available_slots"`
	RequiredSlots  int             `json:"required_slots"`
	HasCapacity    bool            `json:"has_capacity"`
	DailyRate      decimal.Decimal `json:"daily_rate"`
}

type ReserveRequest struct {
	Scope     domain.Scope
	Slots     int
	OfferID   uuid.UUID
	ExpiresAt time.Time
	UserID    uuid.UUID
}

// ConvertParams overrides enrollment defaults; nil keeps the default.
type ConvertParams struct {
	StartDate *time.Time
	DailyRate *decimal.Decimal
}

// ItemError is a per-item failure inside a batch.
type ItemError struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
	Kind  string    `json:"kind"`
}

// CleanupResult reports one expiration sweep.
type CleanupResult struct {
	ReleasedCount             int                     `json:"released_count"`
	StaleReservationsReleased int                     `json:"stale_reservations_released"`
	Expired                   []*domain.WaitlistOffer `json:"expired"`
	Errors                    []ItemError             `json:"errors,omitempty"`
}

type SetCapacityRequest struct {
	DaycareID     uuid.UUID        `json:"daycare_id" validate:"required"`
	ProgramID     *uuid.UUID       `json:"program_id,omitempty"`
	TotalCapacity int              `json:"total_capacity" validate:"min=0"`
	DailyRate     *decimal.Decimal `json:"daily_rate,omitempty"`
}
