package jobs

import (
	"context"
	"sync/atomic"

	"carequeue/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"
)

func (jr *JobRunner) expireOffers(ctx context.Context) (int, error) {
	result, err := jr.services.Offers.HandleExpiredOffers(ctx)
	if err != nil {
		return 0, err
	}
	if result.Cleanup == nil {
		return 0, nil
	}
	processed := result.Cleanup.ReleasedCount + result.Cleanup.StaleReservationsReleased
	if n := len(result.Errors) + len(result.Cleanup.Errors); n > 0 {
		jr.log.WarnContext(ctx, "expiration sweep finished with item errors", "errors", n)
	}
	return processed, nil
}

func (jr *JobRunner) sendReminders(ctx context.Context) (int, error) {
	result, err := jr.services.Offers.SendOfferReminders(ctx)
	if err != nil {
		return 0, err
	}
	if len(result.Errors) > 0 {
		jr.log.WarnContext(ctx, "some reminders failed, they will be retried", "errors", len(result.Errors))
	}
	return result.Sent, nil
}

// recalculateAll reranks every cohort with ACTIVE entries. Cohorts are
// independent, so they run in parallel up to the configured limit.
func (jr *JobRunner) recalculateAll(ctx context.Context) (int, error) {
	scopes, err := jr.services.Entries.ListScopes(ctx, []domain.EntryStatus{domain.EntryStatusActive})
	if err != nil {
		return 0, err
	}

	var done atomic.Int64
	p := pool.New().WithContext(ctx).WithMaxGoroutines(jr.opts.Concurrency)
	for _, scope := range scopes {
		p.Go(func(ctx context.Context) error {
			if _, err := jr.services.Ranking.RecalculatePositions(ctx, scope, nil); err != nil {
				return errors.Wrapf(err, "recalculate %s", scope)
			}
			done.Add(1)
			return nil
		})
	}
	err = p.Wait()
	return int(done.Load()), err
}

func (jr *JobRunner) promoteEnrollments(ctx context.Context) (int, error) {
	return jr.services.Waitlist.PromoteStartedEnrollments(ctx)
}
