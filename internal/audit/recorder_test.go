package audit_test

import (
	"context"
	"testing"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/testutil"
	"carequeue/pkg/clock"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSnapshotsValues(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	repos := store.Repos()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rec := audit.NewRecorder(repos.Audit, clock.NewMock(now))

	entryID := uuid.New()
	daycare := uuid.New()
	require.NoError(t, rec.Record(ctx, audit.Event{
		Action:      domain.AuditEntryStatusChanged,
		EntityType:  domain.EntityEntry,
		EntityID:    entryID,
		DaycareID:   daycare,
		PerformedBy: audit.Actor(uuid.Nil),
		Before:      map[string]string{"status": "ACTIVE"},
		After:       map[string]string{"status": "PAUSED"},
	}))

	logs, err := rec.List(ctx, repository.AuditFilter{EntityID: &entryID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].PerformedBy)
	assert.Equal(t, "ACTIVE", logs[0].OldValue["status"])
	assert.Equal(t, "PAUSED", logs[0].NewValue["status"])
	assert.True(t, logs[0].CreatedAt.Equal(now))
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	repos := store.Repos()
	rec := audit.NewRecorder(repos.Audit, clock.New())
	daycare := uuid.New()

	err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := rec.Record(ctx, audit.Event{Action: domain.AuditOfferSent, EntityType: domain.EntityOffer, EntityID: uuid.New(), DaycareID: daycare}); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	require.Error(t, err)

	logs, err := rec.List(ctx, repository.AuditFilter{DaycareID: &daycare})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
