// Package capacity owns a cohort's slots. Every change to reservations and
// enrollments happens here, under the cohort's capacity row lock.
package capacity

import (
	"context"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/internal/shared/validator"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service interface {
	CheckCapacity(ctx context.Context, scope domain.Scope, requiredSlots int) (*Status, error)
	ReserveCapacity(ctx context.Context, req ReserveRequest) (*domain.CapacityReservation, error)
	// ReleaseCapacity frees the offer's reservation. Missing or settled reservations are a no-op.
	ReleaseCapacity(ctx context.Context, offerID uuid.UUID) error
	ConvertToEnrollment(ctx context.Context, offerID uuid.UUID, params ConvertParams) (*domain.Enrollment, error)
	CleanupExpiredOffers(ctx context.Context) (*CleanupResult, error)
	SetCapacity(ctx context.Context, req SetCapacityRequest, performedBy uuid.UUID) (*domain.DaycareCapacity, error)
	// LockScope takes the cohort lock inside the caller's transaction. It returns
	// nil when the cohort has no capacity row.
	LockScope(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error)
}

type Options struct {
	MaxReservationTTL time.Duration
	SweepBatchSize    int
}

type service struct {
	tx       repository.Transactor
	capacity repository.CapacityRepository
	offers   repository.OfferRepository
	entries  repository.EntryRepository
	recorder *audit.Recorder
	clock    clock.Clock
	log      *logger.Logger
	opts     Options
}

func NewService(store repository.Store, recorder *audit.Recorder, c clock.Clock, log *logger.Logger, opts Options) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	if opts.MaxReservationTTL <= 0 {
		opts.MaxReservationTTL = 30 * 24 * time.Hour
	}
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 200
	}
	return &service{
		tx:       store.Tx,
		capacity: store.Capacity,
		offers:   store.Offers,
		entries:  store.Entries,
		recorder: recorder,
		clock:    c,
		log:      log,
		opts:     opts,
	}
}

func (s *service) CheckCapacity(ctx context.Context, scope domain.Scope, requiredSlots int) (*Status, error) {
	if requiredSlots < 1 {
		return nil, ierr.NewError("required slots must be at least 1").
			WithHint("Ask for one or more slots").
			Mark(ierr.ErrValidation)
	}
	row, err := s.capacity.GetCapacity(ctx, scope)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	status, err := s.usage(ctx, scope, row, s.clock.Now())
	if err != nil {
		return nil, err
	}
	status.RequiredSlots = requiredSlots
	status.HasCapacity = status.AvailableSlots >= requiredSlots
	return status, nil
}

// usage computes availability for a cohort; a nil row means no configured capacity.
func (s *service) usage(ctx context.Context, scope domain.Scope, row *domain.DaycareCapacity, now time.Time) (*Status, error) {
	enrolled, err := s.capacity.SumEnrolledSlots(ctx, scope)
	if err != nil {
		return nil, err
	}
	held, err := s.capacity.SumHeldSlots(ctx, scope, now)
	if err != nil {
		return nil, err
	}

	status := &Status{Scope: scope, EnrolledSlots: enrolled, ReservedSlots: held}
	if row != nil {
		status.TotalCapacity = row.TotalCapacity
		status.DailyRate = row.DailyRate
	}
	status.AvailableSlots = max(0, status.TotalCapacity-enrolled-held)
	return status, nil
}

func (s *service) ReserveCapacity(ctx context.Context, req ReserveRequest) (*domain.CapacityReservation, error) {
	now := s.clock.Now()
	if err := s.validateReserve(req, now); err != nil {
		return nil, err
	}

	var reservation *domain.CapacityReservation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		row, err := s.LockScope(ctx, req.Scope)
		if err != nil {
			return err
		}
		if row == nil {
			return ierr.NewErrorf("no capacity configured for %s", req.Scope).
				WithHint("Set the cohort's capacity before sending offers").
				Mark(ierr.ErrCapacityExhausted)
		}

		status, err := s.usage(ctx, req.Scope, row, now)
		if err != nil {
			return err
		}
		if status.AvailableSlots < req.Slots {
			return ierr.NewErrorf("only %d of %d requested slots available", status.AvailableSlots, req.Slots).
				WithHint("No open spot is left for this cohort").
				WithReportableDetails(map[string]interface{}{
					"available_slots": status.AvailableSlots,
					"requested_slots": req.Slots,
					"total_capacity":  status.TotalCapacity,
				}).
				Mark(ierr.ErrCapacityExhausted)
		}

		reservation = &domain.CapacityReservation{
			ID:         uuid.New(),
			DaycareID:  req.Scope.DaycareID,
			ProgramID:  req.Scope.ProgramID,
			OfferID:    req.OfferID,
			Slots:      req.Slots,
			Status:     domain.ReservationStatusReserved,
			ExpiresAt:  req.ExpiresAt,
			ReservedBy: req.UserID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.capacity.CreateReservation(ctx, reservation); err != nil {
			return err
		}
		s.log.LogCapacityReserved(ctx, req.Scope.Key(), req.OfferID.String(), req.Slots, status.AvailableSlots-req.Slots)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) validateReserve(req ReserveRequest, now time.Time) error {
	switch {
	case req.Slots < 1:
		return ierr.NewError("slots must be at least 1").Mark(ierr.ErrValidation)
	case req.OfferID == uuid.Nil:
		return ierr.NewError("offer id is required").Mark(ierr.ErrValidation)
	case !req.ExpiresAt.After(now):
		return ierr.NewError("reservation must expire in the future").
			WithHint("expiresAt has to be after the current time").
			Mark(ierr.ErrValidation)
	case req.ExpiresAt.Sub(now) > s.opts.MaxReservationTTL:
		return ierr.NewErrorf("reservation lifetime exceeds %s", s.opts.MaxReservationTTL).
			WithHint("Shorten the offer window").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s *service) ReleaseCapacity(ctx context.Context, offerID uuid.UUID) error {
	_, err := s.release(ctx, offerID)
	return err
}

// release reports whether a held reservation was actually released.
func (s *service) release(ctx context.Context, offerID uuid.UUID) (bool, error) {
	released := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		res, err := s.capacity.GetReservationByOffer(ctx, offerID)
		if ierr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusReserved {
			return nil
		}
		if _, err := s.LockScope(ctx, res.Scope()); err != nil {
			return err
		}
		// re-read under the lock
		res, err = s.capacity.GetReservationByOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusReserved {
			return nil
		}

		now := s.clock.Now()
		res.Status = domain.ReservationStatusReleased
		res.ReleasedAt = &now
		if err := s.capacity.UpdateReservation(ctx, res); err != nil {
			return err
		}
		released = true
		return nil
	})
	return released, err
}

func (s *service) ConvertToEnrollment(ctx context.Context, offerID uuid.UUID, params ConvertParams) (*domain.Enrollment, error) {
	var enrollment *domain.Enrollment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		offer, err := s.offers.Get(ctx, offerID)
		if err != nil {
			return err
		}
		row, err := s.LockScope(ctx, offer.Scope())
		if err != nil {
			return err
		}

		if existing, err := s.capacity.GetEnrollmentByOffer(ctx, offerID); err == nil {
			return ierr.NewError("offer already converted to an enrollment").
				WithReportableDetails(map[string]interface{}{"enrollment_id": existing.ID}).
				Mark(ierr.ErrInvalidState)
		} else if !ierr.IsNotFound(err) {
			return err
		}

		res, err := s.capacity.GetReservationByOffer(ctx, offerID)
		if ierr.IsNotFound(err) {
			return ierr.NewError("offer has no capacity reservation").Mark(ierr.ErrInvalidState)
		}
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if !res.IsHolding(now) {
			return ierr.NewErrorf("reservation is %s and can not be converted", reservationState(res, now)).
				Mark(ierr.ErrInvalidState)
		}

		entry, err := s.entries.Get(ctx, offer.EntryID)
		if err != nil {
			return err
		}

		startDate := offer.SpotAvailableDate
		if params.StartDate != nil {
			startDate = *params.StartDate
		}
		rate := decimal.Zero
		if row != nil {
			rate = row.DailyRate
		}
		if params.DailyRate != nil {
			rate = *params.DailyRate
		}

		res.Status = domain.ReservationStatusConverted
		res.ConvertedAt = &now
		if err := s.capacity.UpdateReservation(ctx, res); err != nil {
			return err
		}

		enrollment = &domain.Enrollment{
			ID:        uuid.New(),
			EntryID:   offer.EntryID,
			OfferID:   offer.ID,
			DaycareID: offer.DaycareID,
			ProgramID: offer.ProgramID,
			ChildID:   entry.ChildID,
			ParentID:  entry.ParentID,
			StartDate: startDate,
			DailyRate: rate,
			Slots:     res.Slots,
			Status:    domain.EnrollmentStatusConfirmed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.capacity.CreateEnrollment(ctx, enrollment)
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func reservationState(res *domain.CapacityReservation, now time.Time) string {
	if res.Status == domain.ReservationStatusReserved && !now.Before(res.ExpiresAt) {
		return "expired"
	}
	return string(res.Status)
}

func (s *service) LockScope(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error) {
	row, err := s.capacity.LockCapacity(ctx, scope)
	if ierr.IsNotFound(err) {
		return nil, nil
	}
	return row, err
}

func (s *service) SetCapacity(ctx context.Context, req SetCapacityRequest, performedBy uuid.UUID) (*domain.DaycareCapacity, error) {
	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}
	if req.DailyRate != nil && req.DailyRate.IsNegative() {
		return nil, ierr.NewError("daily rate must not be negative").Mark(ierr.ErrValidation)
	}
	scope := domain.NewScope(req.DaycareID, req.ProgramID)

	var saved *domain.DaycareCapacity
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		row, err := s.LockScope(ctx, scope)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		status, err := s.usage(ctx, scope, row, now)
		if err != nil {
			return err
		}
		used := status.EnrolledSlots + status.ReservedSlots
		if req.TotalCapacity < used {
			return ierr.NewErrorf("capacity %d is below the %d slots in use", req.TotalCapacity, used).
				WithHint("Wait for outstanding offers to settle or raise the total").
				WithReportableDetails(map[string]interface{}{
					"enrolled_slots": status.EnrolledSlots,
					"reserved_slots": status.ReservedSlots,
				}).
				Mark(ierr.ErrInvalidState)
		}

		var before *domain.DaycareCapacity
		if row == nil {
			row = &domain.DaycareCapacity{
				DaycareID: scope.DaycareID,
				ProgramID: scope.ProgramID,
				CreatedAt: now,
			}
		} else {
			cp := *row
			before = &cp
		}
		row.TotalCapacity = req.TotalCapacity
		if req.DailyRate != nil {
			row.DailyRate = *req.DailyRate
		}
		row.UpdatedBy = audit.Actor(performedBy)
		row.UpdatedAt = now
		if err := s.capacity.SaveCapacity(ctx, row); err != nil {
			return err
		}
		saved = row

		ev := audit.Event{
			Action:      domain.AuditCapacityUpdated,
			EntityType:  domain.EntityCapacity,
			EntityID:    row.ID,
			DaycareID:   row.DaycareID,
			PerformedBy: audit.Actor(performedBy),
			After:       row,
		}
		if before != nil {
			ev.Before = before
		}
		return s.recorder.Record(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
