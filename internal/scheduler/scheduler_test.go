package scheduler

import (
	"testing"
	"time"

	"carequeue/internal/jobs"
	"carequeue/internal/shared/config"
	"carequeue/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newRunner() *jobs.JobRunner {
	return jobs.NewJobRunner(jobs.Services{}, nil, logger.NewDiscard(), jobs.Options{Timeout: time.Minute})
}

func TestNewScheduler_RegistersAllJobs(t *testing.T) {
	s := NewScheduler(newRunner(), config.SchedulerConfig{
		ExpireOffersSpec:      "0 */5 * * * *",
		OfferRemindersSpec:    "0 0 * * * *",
		RecalculateSpec:       "0 0 3 * * *",
		PromoteEnrollmentSpec: "0 30 3 * * *",
	}, logger.NewDiscard())

	assert.Equal(t, 4, s.Entries())
}

func TestNewScheduler_SkipsEmptyAndInvalidSpecs(t *testing.T) {
	s := NewScheduler(newRunner(), config.SchedulerConfig{
		ExpireOffersSpec: "0 */5 * * * *",
		// five fields are rejected once seconds are enabled
		OfferRemindersSpec: "0 * * * *",
	}, logger.NewDiscard())

	assert.Equal(t, 1, s.Entries())
}
