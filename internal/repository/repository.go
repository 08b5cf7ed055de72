// Package repository declares the persistence ports used by the waitlist engine.
//
// Implementations must honour a transaction carried in the context: every call made
// with a context handed out by Transactor.WithTx runs inside that transaction.
package repository

import (
	"context"
	"time"

	"carequeue/internal/domain"

	"github.com/google/uuid"
)

// Transactor runs fn as one unit of work. Nested calls join the outer transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntryFilter narrows entry listings. Zero values mean "no constraint".
type EntryFilter struct {
	Scope     *domain.Scope
	DaycareID *uuid.UUID
	ParentID  *uuid.UUID
	ChildID   *uuid.UUID
	Statuses  []domain.EntryStatus
	Limit     int
	Offset    int
}

type EntryRepository interface {
	Create(ctx context.Context, entry *domain.WaitlistEntry) error
	Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistEntry, error)
	Update(ctx context.Context, entry *domain.WaitlistEntry) error
	List(ctx context.Context, filter EntryFilter) ([]*domain.WaitlistEntry, error)
	// ListScopes returns the distinct cohorts that have entries in one of statuses.
	ListScopes(ctx context.Context, statuses []domain.EntryStatus) ([]domain.Scope, error)
}

// RuleFilter narrows rule listings. With IncludeDaycareWide, a program scope also
// matches the daycare's rules that have no program.
type RuleFilter struct {
	Scope              domain.Scope
	IncludeDaycareWide bool
	ActiveOnly         bool
}

type RuleRepository interface {
	Create(ctx context.Context, rule *domain.PriorityRule) error
	Get(ctx context.Context, id uuid.UUID) (*domain.PriorityRule, error)
	Update(ctx context.Context, rule *domain.PriorityRule) error
	List(ctx context.Context, filter RuleFilter) ([]*domain.PriorityRule, error)
}

// OfferFilter narrows offer listings.
type OfferFilter struct {
	Scope      *domain.Scope
	EntryID    *uuid.UUID
	CampaignID *uuid.UUID
	Responses  []domain.OfferResponse
	// ExpiresAtOrBefore matches offerExpiresAt <= t.
	ExpiresAtOrBefore *time.Time
	// ExpiresAfter matches offerExpiresAt > t.
	ExpiresAfter *time.Time
	CreatedAfter *time.Time
	// WithoutReminder matches offers whose reminder was never sent.
	WithoutReminder bool
	Limit           int
}

type OfferRepository interface {
	Create(ctx context.Context, offer *domain.WaitlistOffer) error
	Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistOffer, error)
	Update(ctx context.Context, offer *domain.WaitlistOffer) error
	List(ctx context.Context, filter OfferFilter) ([]*domain.WaitlistOffer, error)
}

type CampaignFilter struct {
	Scope     *domain.Scope
	DaycareID *uuid.UUID
	Statuses  []domain.CampaignStatus
	Limit     int
	Offset    int
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *domain.WaitlistCampaign) error
	Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistCampaign, error)
	Update(ctx context.Context, campaign *domain.WaitlistCampaign) error
	List(ctx context.Context, filter CampaignFilter) ([]*domain.WaitlistCampaign, error)
}

type ReservationFilter struct {
	Scope    *domain.Scope
	Statuses []domain.ReservationStatus
	// ExpiresAtOrBefore matches expiresAt <= t.
	ExpiresAtOrBefore *time.Time
	Limit             int
}

type EnrollmentFilter struct {
	Scope    *domain.Scope
	EntryID  *uuid.UUID
	Statuses []domain.EnrollmentStatus
	// StartsAtOrBefore matches startDate <= t.
	StartsAtOrBefore *time.Time
	// EntryStatuses keeps enrollments whose waitlist entry is in one of these states.
	EntryStatuses []domain.EntryStatus
}

// CapacityRepository persists capacity rows, reservations and enrollments.
type CapacityRepository interface {
	GetCapacity(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error)
	// LockCapacity reads the cohort's capacity row with a row lock held until the
	// surrounding transaction ends. It must be called inside WithTx.
	LockCapacity(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error)
	SaveCapacity(ctx context.Context, capacity *domain.DaycareCapacity) error

	CreateReservation(ctx context.Context, reservation *domain.CapacityReservation) error
	GetReservationByOffer(ctx context.Context, offerID uuid.UUID) (*domain.CapacityReservation, error)
	UpdateReservation(ctx context.Context, reservation *domain.CapacityReservation) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]*domain.CapacityReservation, error)
	// SumHeldSlots totals RESERVED reservations that have not expired at now.
	SumHeldSlots(ctx context.Context, scope domain.Scope, now time.Time) (int, error)

	CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment) error
	GetEnrollmentByOffer(ctx context.Context, offerID uuid.UUID) (*domain.Enrollment, error)
	ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]*domain.Enrollment, error)
	// SumEnrolledSlots totals CONFIRMED enrollments.
	SumEnrolledSlots(ctx context.Context, scope domain.Scope) (int, error)
}

type AuditFilter struct {
	DaycareID *uuid.UUID
	EntityID  *uuid.UUID
	Actions   []domain.AuditAction
	Limit     int
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]*domain.AuditLog, error)
}

// Store bundles the ports so services can be wired from one value.
type Store struct {
	Tx        Transactor
	Entries   EntryRepository
	Rules     RuleRepository
	Offers    OfferRepository
	Campaigns CampaignRepository
	Capacity  CapacityRepository
	Audit     AuditRepository
}
