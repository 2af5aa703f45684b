package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/schedule"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))
	logger.Info("task-scheduler starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger.Info("running", "env", cfg.Env, "tick_interval", cfg.TickInterval.String())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	directory := identity.NewPgDirectory(pgPool)
	dispatcher := jobs.NewPgDispatcher(pgPool, jobs.Options{
		MaxAttempts: cfg.MaxJobAttempts,
		BaseBackoff: cfg.RetryBackoff,
		LeaseTTL:    cfg.LeaseTTL,
	})
	marks := schedule.NewPgMarks(pgPool)

	runner := schedule.NewRunner(
		schedule.DefaultSchedules(cfg.ReminderHour, cfg.DigestHour),
		marks,
		dispatcher,
		directory,
		cfg.TickInterval,
		logger,
		nil,
	)
	runner.Run(rootCtx)

	logger.Info("task-scheduler stopped")
}
