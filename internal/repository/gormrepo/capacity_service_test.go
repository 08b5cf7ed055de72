package gormrepo

import (
	"context"
	"testing"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCapacityCreatesThenUpdatesCohortRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	clk := clock.NewMock(baseTime)
	svc := capacity.NewService(store, audit.NewRecorder(store.Audit, clk), clk, logger.NewDiscard(), capacity.Options{})

	program := uuid.New()
	scope := domain.NewScope(uuid.New(), &program)
	provider := uuid.New()

	created, err := svc.SetCapacity(ctx, capacity.SetCapacityRequest{
		DaycareID: scope.DaycareID, ProgramID: scope.ProgramID, TotalCapacity: 2,
	}, provider)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	rate := decimal.RequireFromString("61.25")
	updated, err := svc.SetCapacity(ctx, capacity.SetCapacityRequest{
		DaycareID: scope.DaycareID, ProgramID: scope.ProgramID, TotalCapacity: 5, DailyRate: &rate,
	}, provider)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	stored, err := store.Capacity.GetCapacity(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, 5, stored.TotalCapacity)
	assert.True(t, stored.DailyRate.Equal(rate))

	var rows int64
	require.NoError(t, store.Capacity.(*capacityRepository).db.Conn(ctx).
		Model(&domain.DaycareCapacity{}).Where("daycare_id = ?", scope.DaycareID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	// a fresh cohort is bookable straight away
	status, err := svc.CheckCapacity(ctx, scope, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, status.AvailableSlots)
}
