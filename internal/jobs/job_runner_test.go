package jobs_test

import (
	"context"
	"testing"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/jobs"
	"carequeue/internal/notifications"
	"carequeue/internal/offers"
	"carequeue/internal/priority"
	"carequeue/internal/ranking"
	"carequeue/internal/repository"
	"carequeue/internal/shared/constants"
	"carequeue/internal/testutil"
	"carequeue/internal/waitlist"
	"carequeue/pkg/cache"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos    repository.Store
	clock    *clock.Mock
	capacity capacity.Service
	offers   offers.Service
	locker   cache.Locker
	runner   *jobs.JobRunner
	provider uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore()
	repos := store.Repos()
	clk := clock.NewMock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	log := logger.NewDiscard()
	recorder := audit.NewRecorder(repos.Audit, clk)
	notifier := notifications.NewNotifier(notifications.NewMemoryDispatcher(), clk, log)

	capSvc := capacity.NewService(repos, recorder, clk, log, capacity.Options{})
	rules := priority.NewService(repos, recorder, clk, log)
	rank := ranking.NewService(repos, rules, capSvc, recorder, notifier, clk, log, ranking.Options{})
	offerSvc := offers.NewService(repos, capSvc, rank, recorder, notifier, clk, log, offers.Options{})
	waitSvc := waitlist.NewService(repos, capSvc, rank, recorder, clk, log)

	locker := cache.NewMemoryLocker()
	runner := jobs.NewJobRunner(jobs.Services{
		Offers: offerSvc, Ranking: rank, Waitlist: waitSvc, Entries: repos.Entries,
	}, locker, log, jobs.Options{Timeout: time.Minute, Concurrency: 2})

	return &fixture{repos: repos, clock: clk, capacity: capSvc, offers: offerSvc, locker: locker, runner: runner, provider: uuid.New()}
}

func (f *fixture) cohort(t *testing.T, total int, joined ...int) (domain.Scope, []*domain.WaitlistEntry) {
	t.Helper()
	scope := domain.NewScope(uuid.New(), nil)
	_, err := f.capacity.SetCapacity(context.Background(), capacity.SetCapacityRequest{
		DaycareID: scope.DaycareID, TotalCapacity: total,
	}, f.provider)
	require.NoError(t, err)

	var entries []*domain.WaitlistEntry
	for _, daysAgo := range joined {
		e := &domain.WaitlistEntry{
			ID: uuid.New(), DaycareID: scope.DaycareID, ChildID: uuid.New(), ParentID: uuid.New(),
			Status: domain.EntryStatusActive, JoinedAt: f.clock.Now().AddDate(0, 0, -daysAgo),
		}
		require.NoError(t, f.repos.Entries.Create(context.Background(), e))
		entries = append(entries, e)
	}
	return scope, entries
}

func TestJobRunner_Names(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		jobs.JobExpireOffers, jobs.JobOfferReminders, jobs.JobPromoteEnrollments, jobs.JobRecalculate,
	}, f.runner.Names())
}

func TestJobRunner_UnknownJob(t *testing.T) {
	f := newFixture(t)
	err := f.runner.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)
}

func TestJobRunner_RecalculateAllCohorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, first := f.cohort(t, 2, 5, 30)
	_, second := f.cohort(t, 1, 1, 2, 3)

	require.NoError(t, f.runner.Run(ctx, jobs.JobRecalculate))

	positions := func(entries []*domain.WaitlistEntry) []int {
		var out []int
		for _, e := range entries {
			got, err := f.repos.Entries.Get(ctx, e.ID)
			require.NoError(t, err)
			out = append(out, got.Position)
		}
		return out
	}
	// Earlier joiners rank first.
	assert.Equal(t, []int{2, 1}, positions(first))
	assert.Equal(t, []int{3, 2, 1}, positions(second))
}

func TestJobRunner_SkipsWhenLockHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, entries := f.cohort(t, 1, 5, 30)

	release, err := f.locker.Acquire(ctx, constants.BuildJobLockKey(jobs.JobRecalculate), time.Minute)
	require.NoError(t, err)

	require.NoError(t, f.runner.Run(ctx, jobs.JobRecalculate))
	got, err := f.repos.Entries.Get(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Zero(t, got.Position, "held lock means the job did not run")

	require.NoError(t, release(ctx))
	require.NoError(t, f.runner.Run(ctx, jobs.JobRecalculate))
	got, err = f.repos.Entries.Get(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Position)
}

func TestJobRunner_ExpireOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope, entries := f.cohort(t, 1, 10)

	offer, err := f.offers.CreateOffer(ctx, entries[0].ID, f.clock.Now().AddDate(0, 1, 0), offers.CreateOfferOptions{OfferWindowHours: 24}, f.provider)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	require.NoError(t, f.runner.Run(ctx, jobs.JobExpireOffers))

	got, err := f.repos.Offers.Get(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferResponseExpired, got.Response)

	check, err := f.capacity.CheckCapacity(ctx, scope, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, check.AvailableSlots)
}

func TestJobRunner_RunAll(t *testing.T) {
	f := newFixture(t)
	f.cohort(t, 1, 3)
	assert.NoError(t, f.runner.RunAll(context.Background()))
}
