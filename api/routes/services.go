package routes

import (
	"carequeue/internal/audit"
	"carequeue/internal/campaigns"
	"carequeue/internal/capacity"
	"carequeue/internal/jobs"
	"carequeue/internal/notifications"
	"carequeue/internal/offers"
	"carequeue/internal/priority"
	"carequeue/internal/ranking"
	"carequeue/internal/repository"
	"carequeue/internal/repository/gormrepo"
	"carequeue/internal/shared/config"
	"carequeue/internal/shared/database"
	"carequeue/internal/waitlist"
	"carequeue/pkg/cache"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/shopspring/decimal"
)

// Services is the wired engine shared by the API server and the cron worker.
type Services struct {
	Store     repository.Store
	Recorder  *audit.Recorder
	Notifier  *notifications.Notifier
	Capacity  capacity.Service
	Priority  priority.Service
	Ranking   ranking.Service
	Offers    offers.Service
	Campaigns campaigns.Service
	Waitlist  waitlist.Service
	Locker    cache.Locker
}

// BuildServices wires every service against db. A nil dispatcher logs notifications instead of sending them.
func BuildServices(cfg *config.Config, db *database.DB, dispatcher notifications.Dispatcher, log *logger.Logger) *Services {
	if log == nil {
		log = logger.GetDefault()
	}
	if dispatcher == nil {
		dispatcher = notifications.NewLogDispatcher(log)
	}
	clk := clock.New()
	store := gormrepo.NewStore(db)
	recorder := audit.NewRecorder(store.Audit, clk)
	notifier := notifications.NewNotifier(dispatcher, clk, log)
	wl := cfg.Waitlist

	capSvc := capacity.NewService(store, recorder, clk, log, capacity.Options{
		MaxReservationTTL: wl.MaxReservationTTL,
		SweepBatchSize:    wl.SweepBatchSize,
	})

	ruleSvc := priority.NewService(store, recorder, clk, log)
	locker := cache.NewMemoryLocker()
	if rdb := db.GetRedisClient(); rdb != nil {
		ruleSvc.SetCacheService(cache.NewService(rdb, log), cfg.Redis.RuleCacheTTL)
		locker = cache.NewRedisLocker(rdb)
	}

	rankSvc := ranking.NewService(store, ruleSvc, capSvc, recorder, notifier, clk, log, ranking.Options{
		SignificantChange: wl.SignificantChangeMin,
		Lookback:          wl.ThroughputLookback,
		Defaults: ranking.ThroughputDefaults{
			OffersPerMonth:     wl.DefaultOffersPerMonth,
			AcceptanceRate:     wl.DefaultAcceptanceRate,
			SeasonalAdjustment: wl.SeasonalAdjustment,
		},
	})

	deposit, err := decimal.NewFromString(wl.DefaultDepositAmount)
	if err != nil {
		log.Warn("invalid default deposit, using zero", "value", wl.DefaultDepositAmount, "error", err)
		deposit = decimal.Zero
	}
	offerSvc := offers.NewService(store, capSvc, rankSvc, recorder, notifier, clk, log, offers.Options{
		DefaultOfferWindowHours: wl.DefaultOfferWindowHours,
		ReminderLeadTime:        wl.ReminderLeadTime,
		SweepBatchSize:          wl.SweepBatchSize,
		DefaultDepositAmount:    deposit,
	})
	campaignSvc := campaigns.NewService(store, offerSvc, capSvc, rankSvc, recorder, clk, log, campaigns.Options{
		DefaultOfferWindowHours: wl.DefaultOfferWindowHours,
	})

	return &Services{
		Store:     store,
		Recorder:  recorder,
		Notifier:  notifier,
		Capacity:  capSvc,
		Priority:  ruleSvc,
		Ranking:   rankSvc,
		Offers:    offerSvc,
		Campaigns: campaignSvc,
		Waitlist:  waitlist.NewService(store, capSvc, rankSvc, recorder, clk, log),
		Locker:    locker,
	}
}

// NewDispatcher returns the Kafka dispatcher when it is enabled and reachable,
// otherwise a dispatcher that only logs.
func NewDispatcher(cfg *config.Config, log *logger.Logger) notifications.Dispatcher {
	if log == nil {
		log = logger.GetDefault()
	}
	if !cfg.Kafka.Enabled {
		return notifications.NewLogDispatcher(log)
	}
	d, err := notifications.NewKafkaDispatcher(cfg.Kafka, log)
	if err != nil {
		log.Error("Kafka unavailable, notifications will only be logged", "error", err)
		return notifications.NewLogDispatcher(log)
	}
	log.Info("Kafka notification dispatcher ready", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return d
}

// JobRunner wires the periodic sweeps over the same services.
func (s *Services) JobRunner(cfg *config.Config, log *logger.Logger) *jobs.JobRunner {
	return jobs.NewJobRunner(jobs.Services{
		Offers:   s.Offers,
		Ranking:  s.Ranking,
		Waitlist: s.Waitlist,
		Entries:  s.Store.Entries,
	}, s.Locker, log, jobs.Options{
		Timeout: cfg.Scheduler.JobTimeout,
		LockTTL: cfg.Redis.SweepLockTTL,
	})
}
