package capacity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/internal/testutil"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *testutil.Store
	repos repository.Store
	clock *clock.Mock
	svc   capacity.Service
	scope domain.Scope
	actor uuid.UUID
}

func newFixture(t *testing.T, total int) *fixture {
	t.Helper()
	store := testutil.NewStore()
	repos := store.Repos()
	clk := clock.NewMock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	svc := capacity.NewService(repos, audit.NewRecorder(repos.Audit, clk), clk, logger.NewDiscard(), capacity.Options{
		MaxReservationTTL: 72 * time.Hour,
	})
	program := uuid.New()
	f := &fixture{store: store, repos: repos, clock: clk, svc: svc, scope: domain.NewScope(uuid.New(), &program), actor: uuid.New()}
	if total > 0 {
		rate := decimal.RequireFromString("55.50")
		_, err := svc.SetCapacity(context.Background(), capacity.SetCapacityRequest{
			DaycareID: f.scope.DaycareID, ProgramID: f.scope.ProgramID, TotalCapacity: total, DailyRate: &rate,
		}, f.actor)
		require.NoError(t, err)
	}
	return f
}

// seedOffer stores an OFFERED entry with a pending offer expiring after window.
func (f *fixture) seedOffer(t *testing.T, window time.Duration) (*domain.WaitlistEntry, *domain.WaitlistOffer) {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now()
	entry := &domain.WaitlistEntry{
		ID: uuid.New(), DaycareID: f.scope.DaycareID, ProgramID: f.scope.ProgramID,
		ChildID: uuid.New(), ParentID: uuid.New(), Status: domain.EntryStatusOffered, JoinedAt: now.AddDate(0, -2, 0),
	}
	require.NoError(t, f.repos.Entries.Create(ctx, entry))
	offer := &domain.WaitlistOffer{
		ID: uuid.New(), EntryID: entry.ID, DaycareID: f.scope.DaycareID, ProgramID: f.scope.ProgramID,
		ParentID: entry.ParentID, SpotAvailableDate: now.AddDate(0, 1, 0), OfferExpiresAt: now.Add(window),
		Response: domain.OfferResponsePending,
	}
	require.NoError(t, f.repos.Offers.Create(ctx, offer))
	return entry, offer
}

func (f *fixture) reserve(ctx context.Context, offerID uuid.UUID, window time.Duration) (*domain.CapacityReservation, error) {
	return f.svc.ReserveCapacity(ctx, capacity.ReserveRequest{
		Scope: f.scope, Slots: 1, OfferID: offerID, ExpiresAt: f.clock.Now().Add(window), UserID: f.actor,
	})
}

func TestCheckCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfigured cohort has nothing available", func(t *testing.T) {
		f := newFixture(t, 0)
		status, err := f.svc.CheckCapacity(ctx, f.scope, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, status.AvailableSlots)
		assert.False(t, status.HasCapacity)
	})

	t.Run("counts enrollments and live reservations", func(t *testing.T) {
		f := newFixture(t, 3)
		_, offer := f.seedOffer(t, 48*time.Hour)
		_, err := f.reserve(ctx, offer.ID, 48*time.Hour)
		require.NoError(t, err)

		status, err := f.svc.CheckCapacity(ctx, f.scope, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, status.TotalCapacity)
		assert.Equal(t, 1, status.ReservedSlots)
		assert.Equal(t, 2, status.AvailableSlots)
		assert.True(t, status.HasCapacity)

		f.clock.Advance(49 * time.Hour)
		status, err = f.svc.CheckCapacity(ctx, f.scope, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, status.ReservedSlots)
		assert.True(t, status.HasCapacity)
	})

	t.Run("rejects non-positive request", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.svc.CheckCapacity(ctx, f.scope, 0)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestReserveCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("exhausted when short", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.reserve(ctx, uuid.New(), time.Hour)
		require.NoError(t, err)

		_, err = f.reserve(ctx, uuid.New(), time.Hour)
		require.Error(t, err)
		assert.True(t, ierr.IsCapacityExhausted(err))
		assert.EqualValues(t, 0, ierr.Details(err)["available_slots"])
	})

	t.Run("exhausted when no capacity row", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.reserve(ctx, uuid.New(), time.Hour)
		assert.True(t, ierr.IsCapacityExhausted(err))
	})

	t.Run("lifetime is bounded", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.reserve(ctx, uuid.New(), 0)
		assert.True(t, ierr.IsValidation(err))
		_, err = f.reserve(ctx, uuid.New(), 73*time.Hour)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("one reservation per offer", func(t *testing.T) {
		f := newFixture(t, 5)
		offerID := uuid.New()
		_, err := f.reserve(ctx, offerID, time.Hour)
		require.NoError(t, err)
		_, err = f.reserve(ctx, offerID, time.Hour)
		assert.True(t, ierr.IsInvalidState(err))
	})
}

func TestReserveCapacityConservesUnderConcurrency(t *testing.T) {
	const total, attempts = 3, 25
	f := newFixture(t, total)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reserve(ctx, uuid.New(), time.Hour)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case ierr.IsCapacityExhausted(err):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, total, succeeded)
	assert.Equal(t, attempts-total, exhausted)

	held, err := f.repos.Capacity.SumHeldSlots(ctx, f.scope, f.clock.Now())
	require.NoError(t, err)
	enrolled, err := f.repos.Capacity.SumEnrolledSlots(ctx, f.scope)
	require.NoError(t, err)
	assert.LessOrEqual(t, held+enrolled, total)
}

func TestReleaseCapacityIsIdempotent(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, f.svc.ReleaseCapacity(ctx, uuid.New()))

	offerID := uuid.New()
	_, err := f.reserve(ctx, offerID, time.Hour)
	require.NoError(t, err)

	require.NoError(t, f.svc.ReleaseCapacity(ctx, offerID))
	require.NoError(t, f.svc.ReleaseCapacity(ctx, offerID))

	res, err := f.repos.Capacity.GetReservationByOffer(ctx, offerID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusReleased, res.Status)
	require.NotNil(t, res.ReleasedAt)

	status, err := f.svc.CheckCapacity(ctx, f.scope, 1)
	require.NoError(t, err)
	assert.True(t, status.HasCapacity)
}

func TestConvertToEnrollment(t *testing.T) {
	ctx := context.Background()

	t.Run("uses defaults and blocks double conversion", func(t *testing.T) {
		f := newFixture(t, 1)
		entry, offer := f.seedOffer(t, 24*time.Hour)
		_, err := f.reserve(ctx, offer.ID, 24*time.Hour)
		require.NoError(t, err)

		enrollment, err := f.svc.ConvertToEnrollment(ctx, offer.ID, capacity.ConvertParams{})
		require.NoError(t, err)
		assert.Equal(t, entry.ChildID, enrollment.ChildID)
		assert.True(t, enrollment.StartDate.Equal(offer.SpotAvailableDate))
		assert.True(t, enrollment.DailyRate.Equal(decimal.RequireFromString("55.50")))
		assert.Equal(t, domain.EnrollmentStatusConfirmed, enrollment.Status)

		res, err := f.repos.Capacity.GetReservationByOffer(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusConverted, res.Status)

		status, err := f.svc.CheckCapacity(ctx, f.scope, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, status.EnrolledSlots)
		assert.Equal(t, 0, status.ReservedSlots)
		assert.False(t, status.HasCapacity)

		_, err = f.svc.ConvertToEnrollment(ctx, offer.ID, capacity.ConvertParams{})
		assert.True(t, ierr.IsInvalidState(err))
	})

	t.Run("overrides", func(t *testing.T) {
		f := newFixture(t, 1)
		_, offer := f.seedOffer(t, 24*time.Hour)
		_, err := f.reserve(ctx, offer.ID, 24*time.Hour)
		require.NoError(t, err)

		start := f.clock.Now().AddDate(0, 2, 0)
		rate := decimal.NewFromInt(70)
		enrollment, err := f.svc.ConvertToEnrollment(ctx, offer.ID, capacity.ConvertParams{StartDate: &start, DailyRate: &rate})
		require.NoError(t, err)
		assert.True(t, enrollment.StartDate.Equal(start))
		assert.True(t, enrollment.DailyRate.Equal(rate))
	})

	t.Run("released reservation can not convert", func(t *testing.T) {
		f := newFixture(t, 1)
		_, offer := f.seedOffer(t, 24*time.Hour)
		_, err := f.reserve(ctx, offer.ID, 24*time.Hour)
		require.NoError(t, err)
		require.NoError(t, f.svc.ReleaseCapacity(ctx, offer.ID))

		_, err = f.svc.ConvertToEnrollment(ctx, offer.ID, capacity.ConvertParams{})
		assert.True(t, ierr.IsInvalidState(err))
		enrollments, err := f.repos.Capacity.ListEnrollments(ctx, repository.EnrollmentFilter{Scope: &f.scope})
		require.NoError(t, err)
		assert.Empty(t, enrollments)
	})

	t.Run("rolls back when the enrollment write fails", func(t *testing.T) {
		f := newFixture(t, 1)
		_, offer := f.seedOffer(t, 24*time.Hour)
		_, err := f.reserve(ctx, offer.ID, 24*time.Hour)
		require.NoError(t, err)

		f.store.FailOn("capacity.CreateEnrollment", ierr.NewError("db down").Mark(ierr.ErrTransient))
		_, err = f.svc.ConvertToEnrollment(ctx, offer.ID, capacity.ConvertParams{})
		require.Error(t, err)
		assert.True(t, ierr.IsTransient(err))

		res, err := f.repos.Capacity.GetReservationByOffer(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusReserved, res.Status)
	})
}

func TestCleanupExpiredOffers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	entry, offer := f.seedOffer(t, time.Hour)
	_, err := f.reserve(ctx, offer.ID, time.Hour)
	require.NoError(t, err)
	_, live := f.seedOffer(t, 48*time.Hour)
	_, err = f.reserve(ctx, live.ID, 48*time.Hour)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	result, err := f.svc.CleanupExpiredOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReleasedCount)
	require.Len(t, result.Expired, 1)
	assert.Equal(t, offer.ID, result.Expired[0].ID)

	stored, err := f.repos.Offers.Get(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferResponseExpired, stored.Response)
	assert.Nil(t, stored.RespondedAt)

	res, err := f.repos.Capacity.GetReservationByOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusReleased, res.Status)

	storedEntry, err := f.repos.Entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusActive, storedEntry.Status)

	liveOffer, err := f.repos.Offers.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferResponsePending, liveOffer.Response)

	logs, err := f.repos.Audit.List(ctx, repository.AuditFilter{EntityID: &offer.ID, Actions: []domain.AuditAction{domain.AuditOfferExpired}})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	again, err := f.svc.CleanupExpiredOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.ReleasedCount)
	assert.Equal(t, 0, again.StaleReservationsReleased)
	logs, err = f.repos.Audit.List(ctx, repository.AuditFilter{EntityID: &offer.ID})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestCleanupReleasesOrphanReservations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	orphanOffer := uuid.New()
	_, err := f.reserve(ctx, orphanOffer, time.Hour)
	require.NoError(t, err)

	f.clock.Advance(90 * time.Minute)
	result, err := f.svc.CleanupExpiredOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ReleasedCount)
	assert.Equal(t, 1, result.StaleReservationsReleased)

	res, err := f.repos.Capacity.GetReservationByOffer(ctx, orphanOffer)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusReleased, res.Status)
}

func TestCleanupIsSafeConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	for i := 0; i < 5; i++ {
		_, offer := f.seedOffer(t, time.Hour)
		_, err := f.reserve(ctx, offer.ID, time.Hour)
		require.NoError(t, err)
	}
	f.clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.CleanupExpiredOffers(ctx)
			if assert.NoError(t, err) {
				counts[i] = result.ReleasedCount
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, counts[0]+counts[1]+counts[2]+counts[3])
	logs, err := f.repos.Audit.List(ctx, repository.AuditFilter{Actions: []domain.AuditAction{domain.AuditOfferExpired}})
	require.NoError(t, err)
	assert.Len(t, logs, 5)
}

func TestSetCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	first, err := f.repos.Capacity.GetCapacity(ctx, f.scope)
	require.NoError(t, err)
	_, err = f.reserve(ctx, uuid.New(), time.Hour)
	require.NoError(t, err)
	_, err = f.reserve(ctx, uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = f.svc.SetCapacity(ctx, capacity.SetCapacityRequest{DaycareID: f.scope.DaycareID, ProgramID: f.scope.ProgramID, TotalCapacity: 1}, f.actor)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidState(err))

	row, err := f.svc.SetCapacity(ctx, capacity.SetCapacityRequest{DaycareID: f.scope.DaycareID, ProgramID: f.scope.ProgramID, TotalCapacity: 4}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, first.ID, row.ID)
	assert.Equal(t, 4, row.TotalCapacity)
	assert.True(t, row.DailyRate.Equal(decimal.RequireFromString("55.50")))

	negative := decimal.NewFromInt(-1)
	_, err = f.svc.SetCapacity(ctx, capacity.SetCapacityRequest{DaycareID: f.scope.DaycareID, TotalCapacity: 1, DailyRate: &negative}, f.actor)
	assert.True(t, ierr.IsValidation(err))

	logs, err := f.repos.Audit.List(ctx, repository.AuditFilter{Actions: []domain.AuditAction{domain.AuditCapacityUpdated}})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[0].OldValue)
	assert.EqualValues(t, 2, logs[1].OldValue["total_capacity"])
}

func TestSaveCapacityKeepsOneRowPerCohort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	dup := &domain.DaycareCapacity{ID: uuid.New(), DaycareID: f.scope.DaycareID, ProgramID: f.scope.ProgramID, TotalCapacity: 9}
	err := f.repos.Capacity.SaveCapacity(ctx, dup)
	assert.True(t, ierr.IsInvalidState(err), "%v", err)

	other := domain.NewScope(uuid.New(), nil)
	fresh := &domain.DaycareCapacity{ID: uuid.New(), DaycareID: other.DaycareID, TotalCapacity: 3}
	require.NoError(t, f.repos.Capacity.SaveCapacity(ctx, fresh))
	stored, err := f.repos.Capacity.GetCapacity(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, stored.ID)
	assert.Equal(t, 3, stored.TotalCapacity)
}
