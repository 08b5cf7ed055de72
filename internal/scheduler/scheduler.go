package scheduler

import (
	"time"

	"carequeue/internal/jobs"
	"carequeue/internal/shared/config"
	"carequeue/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
	cfg  config.SchedulerConfig
	log  *logger.Logger
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner, cfg config.SchedulerConfig, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.GetDefault()
	}
	// Specs carry a seconds field and are read in UTC.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		cfg:  cfg,
		log:  log,
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) specs() map[string]string {
	return map[string]string{
		jobs.JobExpireOffers:       s.cfg.ExpireOffersSpec,
		jobs.JobOfferReminders:     s.cfg.OfferRemindersSpec,
		jobs.JobRecalculate:        s.cfg.RecalculateSpec,
		jobs.JobPromoteEnrollments: s.cfg.PromoteEnrollmentSpec,
	}
}

// registerJobs adds every job with a non-empty spec. An empty spec disables the job.
func (s *Scheduler) registerJobs() {
	specs := s.specs()
	for _, name := range s.jobs.Names() {
		spec := specs[name]
		if spec == "" {
			s.log.Info("Scheduled job disabled", "job", name)
			continue
		}
		if _, err := s.cron.AddFunc(spec, s.jobs.Func(name)); err != nil {
			s.log.Error("Failed to register job", "job", name, "spec", spec, "error", err)
			continue
		}
		s.log.Info("Registered job", "job", name, "spec", spec)
	}
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.log.Info("Starting scheduler", "jobs", s.Entries())
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}
