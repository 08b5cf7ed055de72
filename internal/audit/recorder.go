// Package audit appends state-change records alongside the mutation that caused them.
package audit

import (
	"context"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/pkg/clock"

	"github.com/google/uuid"
)

// Event describes one recorded change. Before/After are snapshotted to JSON.
type Event struct {
	Action      domain.AuditAction
	EntityType  string
	EntityID    uuid.UUID
	DaycareID   uuid.UUID
	PerformedBy *uuid.UUID
	Before      interface{}
	After       interface{}
}

type Recorder struct {
	repo  repository.AuditRepository
	clock clock.Clock
}

func NewRecorder(repo repository.AuditRepository, c clock.Clock) *Recorder {
	return &Recorder{repo: repo, clock: c}
}

// Record appends ev using ctx, so inside WithTx it commits or rolls back with the change.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	log := &domain.AuditLog{
		Action:      ev.Action,
		EntityType:  ev.EntityType,
		EntityID:    ev.EntityID,
		DaycareID:   ev.DaycareID,
		PerformedBy: actor(ev.PerformedBy),
		CreatedAt:   r.clock.Now(),
	}
	if ev.Before != nil {
		log.OldValue = domain.Snapshot(ev.Before)
	}
	if ev.After != nil {
		log.NewValue = domain.Snapshot(ev.After)
	}
	return r.repo.Append(ctx, log)
}

func (r *Recorder) List(ctx context.Context, filter repository.AuditFilter) ([]*domain.AuditLog, error) {
	return r.repo.List(ctx, filter)
}

// actor drops the nil UUID so system actions are stored without a performer.
func actor(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}

// Actor is a convenience for building Event.PerformedBy from a value.
func Actor(id uuid.UUID) *uuid.UUID {
	return actor(&id)
}
