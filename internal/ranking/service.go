package ranking

import (
	"context"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/notifications"
	"carequeue/internal/priority"
	"carequeue/internal/repository"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
)

// RuleSource supplies the active rules of a cohort.
type RuleSource interface {
	ActiveRules(ctx context.Context, scope domain.Scope) ([]*domain.PriorityRule, error)
}

// CohortLocker takes the cohort lock inside the current transaction.
type CohortLocker interface {
	LockScope(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error)
}

type Options struct {
	SignificantChange int
	Lookback          time.Duration
	Defaults          ThroughputDefaults
}

// Result reports one recalculation.
type Result struct {
	Scope           domain.Scope          `json:"scope"`
	UpdatedCount    int                   `json:"updated_count"`
	PositionChanges []PositionChange      `json:"position_changes"`
	Evaluations     []priority.Evaluation `json:"evaluations"`
	Throughput      Throughput            `json:"throughput"`
}

// Significant returns only the moves that were reported to families.
func (r *Result) Significant() []PositionChange {
	var out []PositionChange
	for _, c := range r.PositionChanges {
		if c.Significant {
			out = append(out, c)
		}
	}
	return out
}

type Service interface {
	RecalculatePositions(ctx context.Context, scope domain.Scope, performedBy *uuid.UUID) (*Result, error)
	// CohortThroughput is the throughput used for wait estimates.
	CohortThroughput(ctx context.Context, scope domain.Scope) (Throughput, error)
}

type service struct {
	tx        repository.Transactor
	entries   repository.EntryRepository
	offers    repository.OfferRepository
	rules     RuleSource
	locker    CohortLocker
	evaluator *priority.Evaluator
	recorder  *audit.Recorder
	notifier  *notifications.Notifier
	clock     clock.Clock
	log       *logger.Logger
	opts      Options
}

func NewService(store repository.Store, rules RuleSource, locker CohortLocker, recorder *audit.Recorder,
	notifier *notifications.Notifier, c clock.Clock, log *logger.Logger, opts Options) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	if notifier == nil {
		notifier = notifications.NewNotifier(nil, c, log)
	}
	if opts.SignificantChange <= 0 {
		opts.SignificantChange = DefaultSignificantChange
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 90 * 24 * time.Hour
	}
	return &service{
		tx:        store.Tx,
		entries:   store.Entries,
		offers:    store.Offers,
		rules:     rules,
		locker:    locker,
		evaluator: priority.NewEvaluator(),
		recorder:  recorder,
		notifier:  notifier,
		clock:     c,
		log:       log,
		opts:      opts,
	}
}

type moved struct {
	entry       *domain.WaitlistEntry
	oldPosition int
	newPosition int
}

// RecalculatePositions rescores and reranks the cohort under its lock. Changed
// entries are saved; significant moves are audited in the same transaction and
// announced after it commits.
func (s *service) RecalculatePositions(ctx context.Context, scope domain.Scope, performedBy *uuid.UUID) (*Result, error) {
	result := &Result{Scope: scope}
	var announce []moved

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		result.UpdatedCount = 0
		result.PositionChanges = nil
		result.Evaluations = nil
		announce = nil

		if _, err := s.locker.LockScope(ctx, scope); err != nil {
			return err
		}
		entries, err := s.entries.List(ctx, repository.EntryFilter{
			Scope:    &scope,
			Statuses: []domain.EntryStatus{domain.EntryStatusActive},
		})
		if err != nil {
			return err
		}
		rules, err := s.rules.ActiveRules(ctx, scope)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		tp, err := s.throughput(ctx, scope, now)
		if err != nil {
			return err
		}
		result.Throughput = tp

		byID := make(map[uuid.UUID]*domain.WaitlistEntry, len(entries))
		previous := make(map[uuid.UUID]domain.WaitlistEntry, len(entries))
		for _, entry := range entries {
			previous[entry.ID] = *entry
			eval := s.evaluator.Evaluate(entry, rules, now)
			result.Evaluations = append(result.Evaluations, eval)
			entry.PriorityScore = eval.TotalScore
			byID[entry.ID] = entry
		}

		result.PositionChanges = Rank(entries, s.opts.SignificantChange)
		for _, change := range result.PositionChanges {
			entry := byID[change.EntryID]
			before := previous[change.EntryID]

			entry.Position = change.NewPosition
			if days, known := EstimateWaitDays(change.NewPosition, tp); known {
				entry.EstimatedWaitDays = &days
			} else {
				entry.EstimatedWaitDays = nil
			}
			if !entryChanged(&before, entry) {
				continue
			}
			entry.UpdatedAt = now
			if err := s.entries.Update(ctx, entry); err != nil {
				return err
			}
			result.UpdatedCount++

			if !change.Significant {
				continue
			}
			if err := s.recorder.Record(ctx, audit.Event{
				Action:      domain.AuditPositionChanged,
				EntityType:  domain.EntityEntry,
				EntityID:    entry.ID,
				DaycareID:   entry.DaycareID,
				PerformedBy: performedBy,
				Before:      positionSnapshot(before.Position, before.PriorityScore),
				After:       positionSnapshot(entry.Position, entry.PriorityScore),
			}); err != nil {
				return err
			}
			cp := *entry
			announce = append(announce, moved{entry: &cp, oldPosition: change.OldPosition, newPosition: change.NewPosition})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range announce {
		s.notifier.PositionChanged(ctx, m.entry, m.oldPosition, m.newPosition)
	}
	s.log.LogPositionsRecalculated(ctx, scope.Key(), result.UpdatedCount, len(announce))
	return result, nil
}

func (s *service) CohortThroughput(ctx context.Context, scope domain.Scope) (Throughput, error) {
	return s.throughput(ctx, scope, s.clock.Now())
}

func (s *service) throughput(ctx context.Context, scope domain.Scope, now time.Time) (Throughput, error) {
	since := now.Add(-s.opts.Lookback)
	history, err := s.offers.List(ctx, repository.OfferFilter{Scope: &scope, CreatedAfter: &since})
	if err != nil {
		return Throughput{}, err
	}
	return ThroughputFromHistory(history, s.opts.Lookback, now, s.opts.Defaults), nil
}

func entryChanged(before, after *domain.WaitlistEntry) bool {
	if before.Position != after.Position || before.PriorityScore != after.PriorityScore {
		return true
	}
	if (before.EstimatedWaitDays == nil) != (after.EstimatedWaitDays == nil) {
		return true
	}
	return before.EstimatedWaitDays != nil && *before.EstimatedWaitDays != *after.EstimatedWaitDays
}

func positionSnapshot(position, score int) map[string]int {
	return map[string]int{"position": position, "priority_score": score}
}
