// Command cronjob runs the waitlist sweeps on their cron schedule, or once with -run-once.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"carequeue/api/routes"
	"carequeue/internal/scheduler"
	"carequeue/internal/shared/config"
	"carequeue/internal/shared/database"
	"carequeue/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	runOnce := flag.String("run-once", "", "run a single job by name (or \"all\") and exit")
	flag.Parse()

	appLogger := logger.GetDefault()
	if err := godotenv.Load(); err != nil {
		appLogger.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	dispatcher := routes.NewDispatcher(cfg, appLogger)
	defer dispatcher.Close()

	runner := routes.BuildServices(cfg, db, dispatcher, appLogger).JobRunner(cfg, appLogger)

	if *runOnce != "" {
		ctx := context.Background()
		if *runOnce == "all" {
			err = runner.RunAll(ctx)
		} else {
			err = runner.Run(ctx, *runOnce)
		}
		if err != nil {
			appLogger.Error("job failed", slog.String("job", *runOnce), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	sched := scheduler.NewScheduler(runner, cfg.Scheduler, appLogger)
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
}
