package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DaycareCapacity is the configured slot count of a cohort. Its row doubles as the cohort lock.
type DaycareCapacity struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	DaycareID     uuid.UUID       `json:"daycare_id" gorm:"type:uuid;not null;index:idx_capacity_scope"`
	ProgramID     *uuid.UUID      `json:"program_id,omitempty" gorm:"type:uuid;index:idx_capacity_scope"`
	TotalCapacity int             `json:"total_capacity" gorm:"not null"`
	DailyRate     decimal.Decimal `json:"daily_rate" gorm:"type:decimal(10,2)"`
	UpdatedBy     *uuid.UUID      `json:"updated_by,omitempty" gorm:"type:uuid"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (DaycareCapacity) TableName() string { return "daycare_capacities" }

func (c *DaycareCapacity) Scope() Scope {
	return Scope{DaycareID: c.DaycareID, ProgramID: c.ProgramID}
}

// ReservationStatus tracks a hold on capacity.
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "RESERVED"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
	ReservationStatusConverted ReservationStatus = "CONVERTED"
)

// CapacityReservation holds slots for one offer while the parent decides.
type CapacityReservation struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	DaycareID   uuid.UUID         `json:"daycare_id" gorm:"type:uuid;not null;index:idx_reservation_scope"`
	ProgramID   *uuid.UUID        `json:"program_id,omitempty" gorm:"type:uuid;index:idx_reservation_scope"`
	OfferID     uuid.UUID         `json:"offer_id" gorm:"type:uuid;not null;uniqueIndex"`
	Slots       int               `json:"slots" gorm:"not null"`
	Status      ReservationStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	ExpiresAt   time.Time         `json:"expires_at" gorm:"not null"`
	ReservedBy  uuid.UUID         `json:"reserved_by" gorm:"type:uuid"`
	ReleasedAt  *time.Time        `json:"released_at,omitempty"`
	ConvertedAt *time.Time        `json:"converted_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (CapacityReservation) TableName() string { return "capacity_reservations" }

func (r *CapacityReservation) Scope() Scope {
	return Scope{DaycareID: r.DaycareID, ProgramID: r.ProgramID}
}

// IsHolding reports whether the reservation still counts against capacity at now.
func (r *CapacityReservation) IsHolding(now time.Time) bool {
	return r.Status == ReservationStatusReserved && now.Before(r.ExpiresAt)
}

// EnrollmentStatus of a confirmed placement.
type EnrollmentStatus string

const (
	EnrollmentStatusConfirmed EnrollmentStatus = "CONFIRMED"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// Enrollment is a spot taken by an accepted offer.
type Enrollment struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	EntryID   uuid.UUID        `json:"entry_id" gorm:"type:uuid;not null;index"`
	OfferID   uuid.UUID        `json:"offer_id" gorm:"type:uuid;not null;uniqueIndex"`
	DaycareID uuid.UUID        `json:"daycare_id" gorm:"type:uuid;not null;index:idx_enrollment_scope"`
	ProgramID *uuid.UUID       `json:"program_id,omitempty" gorm:"type:uuid;index:idx_enrollment_scope"`
	ChildID   uuid.UUID        `json:"child_id" gorm:"type:uuid;not null"`
	ParentID  uuid.UUID        `json:"parent_id" gorm:"type:uuid;not null"`
	StartDate time.Time        `json:"start_date" gorm:"not null"`
	DailyRate decimal.Decimal  `json:"daily_rate" gorm:"type:decimal(10,2)"`
	Slots     int              `json:"slots" gorm:"not null"`
	Status    EnrollmentStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollments" }
