// Package jobs holds the periodic sweeps of the waitlist engine. Each job runs
// under a distributed lock so that only one instance sweeps at a time.
package jobs

import (
	"context"
	"sort"
	"time"

	"carequeue/internal/offers"
	"carequeue/internal/ranking"
	"carequeue/internal/repository"
	"carequeue/internal/shared/constants"
	"carequeue/internal/waitlist"
	"carequeue/pkg/cache"
	"carequeue/pkg/logger"

	"github.com/cockroachdb/errors"
)

const (
	JobExpireOffers       = "expire_offers"
	JobOfferReminders     = "offer_reminders"
	JobRecalculate        = "recalculate_positions"
	JobPromoteEnrollments = "promote_enrollments"
)

// ErrUnknownJob is returned by Run for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

type jobFunc func(ctx context.Context) (int, error)

// Services holds the services the jobs drive.
type Services struct {
	Offers   offers.Service
	Ranking  ranking.Service
	Waitlist waitlist.Service
	Entries  repository.EntryRepository
}

type Options struct {
	// Timeout bounds a single run.
	Timeout time.Duration
	// LockTTL must outlive Timeout so a slow run keeps its lease.
	LockTTL time.Duration
	// Concurrency caps parallel cohort recalculations.
	Concurrency int
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services Services
	locker   cache.Locker
	log      *logger.Logger
	opts     Options
	jobs     map[string]jobFunc
}

func NewJobRunner(services Services, locker cache.Locker, log *logger.Logger, opts Options) *JobRunner {
	if log == nil {
		log = logger.GetDefault()
	}
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.LockTTL <= opts.Timeout {
		opts.LockTTL = opts.Timeout + constants.TTL_JOB_LOCK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	jr := &JobRunner{services: services, locker: locker, log: log, opts: opts}
	jr.jobs = map[string]jobFunc{
		JobExpireOffers:       jr.expireOffers,
		JobOfferReminders:     jr.sendReminders,
		JobRecalculate:        jr.recalculateAll,
		JobPromoteEnrollments: jr.promoteEnrollments,
	}
	return jr
}

// Names lists the registered jobs in a stable order.
func (jr *JobRunner) Names() []string {
	names := make([]string, 0, len(jr.jobs))
	for name := range jr.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job. A job already running elsewhere is skipped without error.
func (jr *JobRunner) Run(ctx context.Context, name string) (err error) {
	job, ok := jr.jobs[name]
	if !ok {
		return errors.Wrapf(ErrUnknownJob, "%s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, jr.opts.Timeout)
	defer cancel()

	release, err := jr.locker.Acquire(ctx, constants.BuildJobLockKey(name), jr.opts.LockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		jr.log.InfoContext(ctx, "job already running elsewhere, skipping", "job", name)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			jr.log.WarnContext(ctx, "failed to release job lock", "job", name, "error", rerr)
		}
	}()

	start := time.Now()
	processed := 0
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("job %s panicked: %v", name, r)
		}
		jr.log.LogSweep(ctx, name, processed, time.Since(start), err)
	}()

	processed, err = job(ctx)
	return err
}

// RunAll runs every job once, in name order, and joins their errors.
func (jr *JobRunner) RunAll(ctx context.Context) error {
	var errs []error
	for _, name := range jr.Names() {
		if err := jr.Run(ctx, name); err != nil {
			errs = append(errs, errors.Wrap(err, name))
		}
	}
	return errors.Join(errs...)
}

// Func adapts a job for cron, which wants a func().
func (jr *JobRunner) Func(name string) func() {
	return func() {
		if err := jr.Run(context.Background(), name); err != nil {
			jr.log.ErrorWithContext(context.Background(), "scheduled job failed", err, map[string]interface{}{"job": name})
		}
	}
}
