package gormrepo

import (
	"context"
	"time"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type capacityRepository struct {
	db *database.DB
}

func NewCapacityRepository(db *database.DB) repository.CapacityRepository {
	return &capacityRepository{db: db}
}

func (r *capacityRepository) GetCapacity(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error) {
	var capacity domain.DaycareCapacity
	if err := whereScope(r.db.Conn(ctx), scope).First(&capacity).Error; err != nil {
		return nil, translate(err, "daycare capacity", scope.Key())
	}
	return &capacity, nil
}

// LockCapacity takes SELECT ... FOR UPDATE on the cohort's capacity row.
func (r *capacityRepository) LockCapacity(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error) {
	var capacity domain.DaycareCapacity
	q := whereScope(r.db.Conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), scope)
	if err := q.First(&capacity).Error; err != nil {
		return nil, translate(err, "daycare capacity", scope.Key())
	}
	return &capacity, nil
}

// SaveCapacity upserts on id; a second row for the same cohort violates the scope index.
func (r *capacityRepository) SaveCapacity(ctx context.Context, capacity *domain.DaycareCapacity) error {
	ensureID(&capacity.ID)
	err := r.db.Conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(capacity).Error
	return translate(err, "daycare capacity", capacity.ID)
}

func (r *capacityRepository) CreateReservation(ctx context.Context, reservation *domain.CapacityReservation) error {
	ensureID(&reservation.ID)
	return translate(r.db.Conn(ctx).Create(reservation).Error, "capacity reservation", reservation.OfferID)
}

func (r *capacityRepository) GetReservationByOffer(ctx context.Context, offerID uuid.UUID) (*domain.CapacityReservation, error) {
	var reservation domain.CapacityReservation
	if err := r.db.Conn(ctx).Where("offer_id = ?", offerID).First(&reservation).Error; err != nil {
		return nil, translate(err, "capacity reservation", offerID)
	}
	return &reservation, nil
}

func (r *capacityRepository) UpdateReservation(ctx context.Context, reservation *domain.CapacityReservation) error {
	return updateAll(r.db.Conn(ctx), reservation, "capacity reservation", reservation.ID)
}

func (r *capacityRepository) ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]*domain.CapacityReservation, error) {
	q := r.db.Conn(ctx).Model(&domain.CapacityReservation{})
	if filter.Scope != nil {
		q = whereScope(q, *filter.Scope)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.ExpiresAtOrBefore != nil {
		q = q.Where("expires_at <= ?", *filter.ExpiresAtOrBefore)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var reservations []*domain.CapacityReservation
	if err := q.Order("expires_at ASC, id ASC").Find(&reservations).Error; err != nil {
		return nil, translate(err, "capacity reservation", nil)
	}
	return reservations, nil
}

func (r *capacityRepository) SumHeldSlots(ctx context.Context, scope domain.Scope, now time.Time) (int, error) {
	var total int64
	q := whereScope(r.db.Conn(ctx).Model(&domain.CapacityReservation{}), scope).
		Where("status = ?", domain.ReservationStatusReserved).
		Where("expires_at > ?", now)
	if err := q.Select("COALESCE(SUM(slots), 0)").Scan(&total).Error; err != nil {
		return 0, translate(err, "capacity reservation", scope.Key())
	}
	return int(total), nil
}

func (r *capacityRepository) CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment) error {
	ensureID(&enrollment.ID)
	return translate(r.db.Conn(ctx).Create(enrollment).Error, "enrollment", enrollment.OfferID)
}

func (r *capacityRepository) GetEnrollmentByOffer(ctx context.Context, offerID uuid.UUID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	if err := r.db.Conn(ctx).Where("offer_id = ?", offerID).First(&enrollment).Error; err != nil {
		return nil, translate(err, "enrollment", offerID)
	}
	return &enrollment, nil
}

func (r *capacityRepository) ListEnrollments(ctx context.Context, filter repository.EnrollmentFilter) ([]*domain.Enrollment, error) {
	q := r.db.Conn(ctx).Model(&domain.Enrollment{})
	if filter.Scope != nil {
		q = whereScope(q, *filter.Scope)
	}
	if filter.EntryID != nil {
		q = q.Where("entry_id = ?", *filter.EntryID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.StartsAtOrBefore != nil {
		q = q.Where("start_date <= ?", *filter.StartsAtOrBefore)
	}
	if len(filter.EntryStatuses) > 0 {
		entries := r.db.Conn(ctx).Model(&domain.WaitlistEntry{}).Select("id").Where("status IN ?", filter.EntryStatuses)
		q = q.Where("entry_id IN (?)", entries)
	}

	var enrollments []*domain.Enrollment
	if err := q.Order("start_date ASC, id ASC").Find(&enrollments).Error; err != nil {
		return nil, translate(err, "enrollment", nil)
	}
	return enrollments, nil
}

func (r *capacityRepository) SumEnrolledSlots(ctx context.Context, scope domain.Scope) (int, error) {
	var total int64
	q := whereScope(r.db.Conn(ctx).Model(&domain.Enrollment{}), scope).
		Where("status = ?", domain.EnrollmentStatusConfirmed)
	if err := q.Select("COALESCE(SUM(slots), 0)").Scan(&total).Error; err != nil {
		return 0, translate(err, "enrollment", scope.Key())
	}
	return int(total), nil
}
