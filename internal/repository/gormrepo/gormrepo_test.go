package gormrepo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"
	ierr "carequeue/internal/shared/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carequeue.db")
	g, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := g.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(g))
	return NewStore(database.NewFromGorm(g, nil))
}

func newEntry(scope domain.Scope, joined time.Time, score int) *domain.WaitlistEntry {
	return &domain.WaitlistEntry{
		DaycareID:     scope.DaycareID,
		ProgramID:     scope.ProgramID,
		ChildID:       uuid.New(),
		ParentID:      uuid.New(),
		Status:        domain.EntryStatusActive,
		PriorityScore: score,
		JoinedAt:      joined,
		ProviderTags:  domain.StringList{"Returning"},
	}
}

func TestEntryRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	daycare := uuid.New()
	program := uuid.New()
	daycareScope := domain.NewScope(daycare, nil)
	programScope := domain.NewScope(daycare, &program)

	a := newEntry(daycareScope, baseTime, 10)
	b := newEntry(programScope, baseTime.Add(time.Hour), 5)
	require.NoError(t, store.Entries.Create(ctx, a))
	require.NoError(t, store.Entries.Create(ctx, b))
	assert.NotEqual(t, uuid.Nil, a.ID)

	t.Run("get round trips typed columns", func(t *testing.T) {
		got, err := store.Entries.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StringList{"Returning"}, got.ProviderTags)
		assert.Nil(t, got.ProgramID)
		assert.True(t, got.JoinedAt.Equal(baseTime))
	})

	t.Run("missing entry is not found", func(t *testing.T) {
		_, err := store.Entries.Get(ctx, uuid.New())
		assert.True(t, ierr.IsNotFound(err))
	})

	t.Run("daycare scope does not include program rows", func(t *testing.T) {
		got, err := store.Entries.List(ctx, repository.EntryFilter{Scope: &daycareScope})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)

		got, err = store.Entries.List(ctx, repository.EntryFilter{Scope: &programScope})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("update writes zero values", func(t *testing.T) {
		a.Status = domain.EntryStatusPaused
		a.PriorityScore = 0
		a.ProviderTags = nil
		require.NoError(t, store.Entries.Update(ctx, a))

		got, err := store.Entries.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EntryStatusPaused, got.Status)
		assert.Equal(t, 0, got.PriorityScore)
		assert.Empty(t, got.ProviderTags)
	})

	t.Run("update of unknown entry is not found", func(t *testing.T) {
		ghost := newEntry(daycareScope, baseTime, 1)
		ghost.ID = uuid.New()
		assert.True(t, ierr.IsNotFound(store.Entries.Update(ctx, ghost)))
	})

	t.Run("status filter and scopes", func(t *testing.T) {
		got, err := store.Entries.List(ctx, repository.EntryFilter{
			DaycareID: &daycare,
			Statuses:  []domain.EntryStatus{domain.EntryStatusActive},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)

		scopes, err := store.Entries.ListScopes(ctx, []domain.EntryStatus{domain.EntryStatusActive})
		require.NoError(t, err)
		require.Len(t, scopes, 1)
		assert.True(t, scopes[0].Equal(programScope))
	})
}

func TestRuleRepositoryIncludesDaycareWideRules(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	daycare := uuid.New()
	program := uuid.New()
	minDays := 30

	wide := &domain.PriorityRule{DaycareID: daycare, Name: "Siblings", RuleType: domain.RuleTypeSiblingEnrolled, Points: 50, IsActive: true, SortOrder: 2}
	scoped := &domain.PriorityRule{
		DaycareID: daycare, ProgramID: &program, Name: "Loyal", RuleType: domain.RuleTypeTimeOnList,
		Points: 10, IsActive: true, SortOrder: 1, Conditions: domain.RuleConditions{MinDays: &minDays},
	}
	inactive := &domain.PriorityRule{DaycareID: daycare, Name: "Old", RuleType: domain.RuleTypeStaffChild, Points: 5, SortOrder: 0}
	for _, r := range []*domain.PriorityRule{wide, scoped, inactive} {
		require.NoError(t, store.Rules.Create(ctx, r))
	}

	rules, err := store.Rules.List(ctx, repository.RuleFilter{
		Scope:              domain.NewScope(daycare, &program),
		IncludeDaycareWide: true,
		ActiveOnly:         true,
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, scoped.ID, rules[0].ID)
	require.NotNil(t, rules[0].Conditions.MinDays)
	assert.Equal(t, 30, *rules[0].Conditions.MinDays)
	assert.Equal(t, wide.ID, rules[1].ID)

	rules, err = store.Rules.List(ctx, repository.RuleFilter{Scope: domain.NewScope(daycare, nil)})
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCapacityRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	scope := domain.NewScope(uuid.New(), nil)

	capacity := &domain.DaycareCapacity{
		DaycareID:     scope.DaycareID,
		TotalCapacity: 3,
		DailyRate:     decimal.RequireFromString("55.50"),
	}
	require.NoError(t, store.Capacity.SaveCapacity(ctx, capacity))

	held := &domain.CapacityReservation{DaycareID: scope.DaycareID, OfferID: uuid.New(), Slots: 1, Status: domain.ReservationStatusReserved, ExpiresAt: baseTime.Add(48 * time.Hour)}
	stale := &domain.CapacityReservation{DaycareID: scope.DaycareID, OfferID: uuid.New(), Slots: 1, Status: domain.ReservationStatusReserved, ExpiresAt: baseTime.Add(-time.Hour)}
	released := &domain.CapacityReservation{DaycareID: scope.DaycareID, OfferID: uuid.New(), Slots: 1, Status: domain.ReservationStatusReleased, ExpiresAt: baseTime.Add(48 * time.Hour)}
	for _, r := range []*domain.CapacityReservation{held, stale, released} {
		require.NoError(t, store.Capacity.CreateReservation(ctx, r))
	}

	t.Run("lock reads the row inside a transaction", func(t *testing.T) {
		err := store.Tx.WithTx(ctx, func(ctx context.Context) error {
			locked, err := store.Capacity.LockCapacity(ctx, scope)
			if err != nil {
				return err
			}
			assert.Equal(t, 3, locked.TotalCapacity)
			assert.True(t, locked.DailyRate.Equal(decimal.RequireFromString("55.5")))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("only unexpired reserved slots are held", func(t *testing.T) {
		n, err := store.Capacity.SumHeldSlots(ctx, scope, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("stale reservations are listable", func(t *testing.T) {
		cutoff := baseTime
		got, err := store.Capacity.ListReservations(ctx, repository.ReservationFilter{
			Statuses:          []domain.ReservationStatus{domain.ReservationStatusReserved},
			ExpiresAtOrBefore: &cutoff,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, stale.OfferID, got[0].OfferID)
	})

	t.Run("second reservation for an offer conflicts", func(t *testing.T) {
		dup := &domain.CapacityReservation{DaycareID: scope.DaycareID, OfferID: held.OfferID, Slots: 1, Status: domain.ReservationStatusReserved, ExpiresAt: baseTime.Add(time.Hour)}
		err := store.Capacity.CreateReservation(ctx, dup)
		assert.True(t, ierr.IsInvalidState(err))
	})

	t.Run("enrolled slots count confirmed only", func(t *testing.T) {
		require.NoError(t, store.Capacity.CreateEnrollment(ctx, &domain.Enrollment{
			EntryID: uuid.New(), OfferID: uuid.New(), DaycareID: scope.DaycareID, ChildID: uuid.New(), ParentID: uuid.New(),
			StartDate: baseTime, Slots: 1, Status: domain.EnrollmentStatusConfirmed,
		}))
		require.NoError(t, store.Capacity.CreateEnrollment(ctx, &domain.Enrollment{
			EntryID: uuid.New(), OfferID: uuid.New(), DaycareID: scope.DaycareID, ChildID: uuid.New(), ParentID: uuid.New(),
			StartDate: baseTime, Slots: 1, Status: domain.EnrollmentStatusWithdrawn,
		}))
		n, err := store.Capacity.SumEnrolledSlots(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("missing capacity row is not found", func(t *testing.T) {
		_, err := store.Capacity.GetCapacity(ctx, domain.NewScope(uuid.New(), nil))
		assert.True(t, ierr.IsNotFound(err))
	})
}

func TestListEnrollmentsFiltersOnEntryStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	scope := domain.NewScope(uuid.New(), nil)

	waiting := newEntry(scope, baseTime, 0)
	waiting.Status = domain.EntryStatusAccepted
	enrolled := newEntry(scope, baseTime, 0)
	enrolled.Status = domain.EntryStatusEnrolled
	var ids []uuid.UUID
	for _, e := range []*domain.WaitlistEntry{waiting, enrolled} {
		require.NoError(t, store.Entries.Create(ctx, e))
		enrollment := &domain.Enrollment{
			EntryID: e.ID, OfferID: uuid.New(), DaycareID: scope.DaycareID, ChildID: e.ChildID, ParentID: e.ParentID,
			StartDate: baseTime.Add(-time.Hour), Slots: 1, Status: domain.EnrollmentStatusConfirmed,
		}
		require.NoError(t, store.Capacity.CreateEnrollment(ctx, enrollment))
		ids = append(ids, e.ID)
	}

	cutoff := baseTime
	filter := repository.EnrollmentFilter{
		Scope:            &scope,
		Statuses:         []domain.EnrollmentStatus{domain.EnrollmentStatusConfirmed},
		StartsAtOrBefore: &cutoff,
	}
	all, err := store.Capacity.ListEnrollments(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filter.EntryStatuses = []domain.EntryStatus{domain.EntryStatusAccepted}
	pending, err := store.Capacity.ListEnrollments(ctx, filter)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[0], pending[0].EntryID)
}

func TestWithTxRollsBackAndJoins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	scope := domain.NewScope(uuid.New(), nil)
	boom := errors.New("boom")

	var id uuid.UUID
	err := store.Tx.WithTx(ctx, func(ctx context.Context) error {
		return store.Tx.WithTx(ctx, func(ctx context.Context) error {
			e := newEntry(scope, baseTime, 1)
			if err := store.Entries.Create(ctx, e); err != nil {
				return err
			}
			id = e.ID
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Entries.Get(ctx, id)
	assert.True(t, ierr.IsNotFound(err))
}

func TestOfferRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	scope := domain.NewScope(uuid.New(), nil)
	campaign := uuid.New()

	mk := func(expires time.Time, response domain.OfferResponse, campaignID *uuid.UUID) *domain.WaitlistOffer {
		o := &domain.WaitlistOffer{
			EntryID: uuid.New(), CampaignID: campaignID, DaycareID: scope.DaycareID, ParentID: uuid.New(),
			SpotAvailableDate: baseTime, OfferExpiresAt: expires, Response: response,
			DepositAmount: decimal.Zero,
		}
		require.NoError(t, store.Offers.Create(ctx, o))
		return o
	}

	expired := mk(baseTime.Add(-time.Hour), domain.OfferResponsePending, nil)
	live := mk(baseTime.Add(time.Hour), domain.OfferResponsePending, &campaign)
	mk(baseTime.Add(-time.Hour), domain.OfferResponseDeclined, &campaign)

	cutoff := baseTime
	got, err := store.Offers.List(ctx, repository.OfferFilter{
		Responses:         []domain.OfferResponse{domain.OfferResponsePending},
		ExpiresAtOrBefore: &cutoff,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)

	got, err = store.Offers.List(ctx, repository.OfferFilter{
		CampaignID:      &campaign,
		Responses:       []domain.OfferResponse{domain.OfferResponsePending},
		ExpiresAfter:    &cutoff,
		WithoutReminder: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)

	sent := baseTime
	live.ReminderSentAt = &sent
	require.NoError(t, store.Offers.Update(ctx, live))
	got, err = store.Offers.List(ctx, repository.OfferFilter{CampaignID: &campaign, WithoutReminder: true})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAuditRepositoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	daycare := uuid.New()
	entity := uuid.New()

	require.NoError(t, store.Audit.Append(ctx, &domain.AuditLog{
		Action: domain.AuditOfferSent, EntityType: domain.EntityOffer, EntityID: entity, DaycareID: daycare,
		NewValue: domain.JSONMap{"response": "PENDING"},
	}))
	require.NoError(t, store.Audit.Append(ctx, &domain.AuditLog{
		Action: domain.AuditPositionChanged, EntityType: domain.EntityEntry, EntityID: uuid.New(), DaycareID: daycare,
	}))

	logs, err := store.Audit.List(ctx, repository.AuditFilter{EntityID: &entity})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "PENDING", logs[0].NewValue["response"])

	logs, err = store.Audit.List(ctx, repository.AuditFilter{DaycareID: &daycare, Actions: []domain.AuditAction{domain.AuditPositionChanged}})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
