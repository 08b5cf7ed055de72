package waitlist_test

import (
	"context"
	"testing"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/offers"
	"carequeue/internal/priority"
	"carequeue/internal/ranking"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/internal/testutil"
	"carequeue/internal/waitlist"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos  repository.Store
	clock  *clock.Mock
	rules  priority.Service
	offers offers.Service
	svc    waitlist.Service
	scope  domain.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := testutil.NewStore().Repos()
	clk := clock.NewMock(time.Date(2026, 9, 1, 7, 30, 0, 0, time.UTC))
	log := logger.NewDiscard()
	recorder := audit.NewRecorder(repos.Audit, clk)
	capSvc := capacity.NewService(repos, recorder, clk, log, capacity.Options{})
	rules := priority.NewService(repos, recorder, clk, log)
	rank := ranking.NewService(repos, rules, capSvc, recorder, nil, clk, log, ranking.Options{
		Defaults: ranking.ThroughputDefaults{OffersPerMonth: 3, AcceptanceRate: 1},
	})
	f := &fixture{
		repos:  repos,
		clock:  clk,
		rules:  rules,
		offers: offers.NewService(repos, capSvc, rank, recorder, nil, clk, log, offers.Options{}),
		svc:    waitlist.NewService(repos, capSvc, rank, recorder, clk, log),
		scope:  domain.NewScope(uuid.New(), nil),
	}
	_, err := capSvc.SetCapacity(context.Background(), capacity.SetCapacityRequest{DaycareID: f.scope.DaycareID, TotalCapacity: 2}, uuid.New())
	require.NoError(t, err)
	return f
}

func (f *fixture) join(t *testing.T, parent uuid.UUID, mutate func(*waitlist.JoinWaitlistRequest)) *waitlist.EntryStatusResponse {
	t.Helper()
	req := waitlist.JoinWaitlistRequest{DaycareID: f.scope.DaycareID, ChildID: uuid.New()}
	if mutate != nil {
		mutate(&req)
	}
	status, err := f.svc.JoinWaitlist(context.Background(), parent, req)
	require.NoError(t, err)
	return status
}

func TestJoinWaitlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := uuid.New()

	first := f.join(t, parent, nil)
	assert.Equal(t, domain.EntryStatusActive, first.Entry.Status)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "Top 5", first.PositionBand)
	assert.Equal(t, 1, first.CohortSize)
	require.NotNil(t, first.EstimatedWaitDays)
	assert.Equal(t, 0, *first.EstimatedWaitDays)

	f.clock.Advance(time.Hour)
	second := f.join(t, uuid.New(), nil)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, 2, second.CohortSize)
	require.NotNil(t, second.EstimatedWaitDays)
	assert.Equal(t, 10, *second.EstimatedWaitDays)

	t.Run("same child twice", func(t *testing.T) {
		_, err := f.svc.JoinWaitlist(ctx, parent, waitlist.JoinWaitlistRequest{DaycareID: f.scope.DaycareID, ChildID: first.Entry.ChildID})
		assert.True(t, ierr.IsInvalidState(err))
	})

	t.Run("missing child", func(t *testing.T) {
		_, err := f.svc.JoinWaitlist(ctx, parent, waitlist.JoinWaitlistRequest{DaycareID: f.scope.DaycareID})
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestPriorityFlagsOutrankJoinOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.rules.CreateRule(ctx, priority.CreateRuleRequest{
		DaycareID: f.scope.DaycareID, Name: "Staff", RuleType: domain.RuleTypeStaffChild, Points: 40,
	}, uuid.New())
	require.NoError(t, err)

	early := f.join(t, uuid.New(), nil)
	f.clock.Advance(24 * time.Hour)
	late := f.join(t, uuid.New(), nil)
	require.Equal(t, 2, late.Position)

	yes := true
	updated, err := f.svc.UpdateEntry(ctx, late.Entry.ID, waitlist.UpdateEntryRequest{
		IsStaffChild: &yes, ProviderTags: []string{"twins", "twins"},
	}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Position)
	assert.Equal(t, 40, updated.PriorityScore)
	assert.Equal(t, domain.StringList{"twins"}, updated.ProviderTags)

	status, err := f.svc.GetEntryStatus(ctx, early.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Position)
}

func TestPauseResumeWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.join(t, uuid.New(), nil)
	f.clock.Advance(time.Hour)
	b := f.join(t, uuid.New(), nil)

	paused, err := f.svc.PauseEntry(ctx, a.Entry.ID, a.Entry.ParentID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusPaused, paused.Status)
	assert.Zero(t, paused.Position)

	status, err := f.svc.GetEntryStatus(ctx, b.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Position)
	assert.Equal(t, 1, status.CohortSize)

	_, err = f.svc.PauseEntry(ctx, a.Entry.ID, a.Entry.ParentID)
	assert.True(t, ierr.IsInvalidState(err))

	resumed, err := f.svc.ResumeEntry(ctx, a.Entry.ID, a.Entry.ParentID)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.Position)

	withdrawn, err := f.svc.WithdrawEntry(ctx, b.Entry.ID, b.Entry.ParentID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusWithdrawn, withdrawn.Status)

	_, err = f.svc.ResumeEntry(ctx, b.Entry.ID, b.Entry.ParentID)
	assert.True(t, ierr.IsInvalidState(err))

	logs, err := f.repos.Audit.List(ctx, repository.AuditFilter{
		EntityID: &a.Entry.ID, Actions: []domain.AuditAction{domain.AuditEntryStatusChanged},
	})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestWithdrawRequiresAnsweringOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.join(t, uuid.New(), nil)

	offer, err := f.offers.CreateOffer(ctx, entry.Entry.ID, f.clock.Now().AddDate(0, 1, 0), offers.CreateOfferOptions{}, uuid.New())
	require.NoError(t, err)

	status, err := f.svc.GetEntryStatus(ctx, entry.Entry.ID)
	require.NoError(t, err)
	require.NotNil(t, status.OutstandingOffer)
	assert.Equal(t, offer.ID, status.OutstandingOffer.ID)
	assert.Empty(t, status.PositionBand)

	_, err = f.svc.WithdrawEntry(ctx, entry.Entry.ID, entry.Entry.ParentID)
	assert.True(t, ierr.IsInvalidState(err))
	assert.Contains(t, ierr.Hint(err), "Accept or decline")
}

func TestListEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := uuid.New()
	f.join(t, parent, nil)
	f.join(t, parent, nil)
	f.join(t, uuid.New(), nil)

	mine, err := f.svc.ListEntries(ctx, repository.EntryFilter{ParentID: &parent})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.svc.ListEntries(ctx, repository.EntryFilter{DaycareID: &f.scope.DaycareID, Statuses: []domain.EntryStatus{domain.EntryStatusActive}})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPromoteStartedEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.join(t, uuid.New(), nil)

	start := f.clock.Now().AddDate(0, 0, 14)
	offer, err := f.offers.CreateOffer(ctx, entry.Entry.ID, start, offers.CreateOfferOptions{}, uuid.New())
	require.NoError(t, err)
	_, err = f.offers.ProcessOfferResponse(ctx, offers.RespondRequest{OfferID: offer.ID, Response: domain.OfferResponseAccepted})
	require.NoError(t, err)

	promoted, err := f.svc.PromoteStartedEnrollments(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	f.clock.Advance(15 * 24 * time.Hour)
	promoted, err = f.svc.PromoteStartedEnrollments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	stored, err := f.svc.GetEntry(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusEnrolled, stored.Status)

	promoted, err = f.svc.PromoteStartedEnrollments(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	logs, err := f.repos.Audit.List(ctx, repository.AuditFilter{Actions: []domain.AuditAction{domain.AuditEntryEnrolled}})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
