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
	"github.com/hackgods/hospital-scheduling/internal/notify"
	"github.com/hackgods/hospital-scheduling/internal/report"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
	"github.com/hackgods/hospital-scheduling/internal/worker"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))
	logger.Info("job-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger.Info("running", "env", cfg.Env, "workers", cfg.WorkerCount, "poll_interval", cfg.PollInterval.String())

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

	store := scheduling.NewPgStore(pgPool)
	directory := identity.NewPgDirectory(pgPool)
	dispatcher := jobs.NewPgDispatcher(pgPool, jobs.Options{
		MaxAttempts: cfg.MaxJobAttempts,
		BaseBackoff: cfg.RetryBackoff,
		LeaseTTL:    cfg.LeaseTTL,
	})

	sink, err := report.NewFSSink(cfg.ReportsDir)
	if err != nil {
		logger.Error("reports sink error", "error", err)
		os.Exit(1)
	}

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.MailFrom,
		FromName:  cfg.MailFromName,
	}, logger); sg != nil {
		sender = sg
	} else {
		logger.Info("SENDGRID_API_KEY not set, using stub email sender")
		sender = notify.NewStubEmailSender(logger)
	}

	handlers := worker.NewHandlers(store, directory, sender, sink, logger)
	pool := worker.NewPool(dispatcher, handlers, worker.PoolOptions{
		Count:        cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
	}, logger, nil)

	pool.Run(rootCtx)

	logger.Info("job-worker stopped")
}
