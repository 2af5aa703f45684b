package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/hospital-scheduling/internal/api"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/metrics"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/report"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

const version = "1.0.0"

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))
	logger.Info("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger.Info("running", "env", cfg.Env, "http_port", cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	bootCtx, cancelBoot := context.WithTimeout(rootCtx, 10*time.Second)
	err = db.Bootstrap(bootCtx, pgPool, cfg.ReportsDir)
	cancelBoot()
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	store := scheduling.NewPgStore(pgPool)
	directory := identity.NewPgDirectory(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	dispatcher := jobs.NewPgDispatcher(pgPool, jobs.Options{
		MaxAttempts: cfg.MaxJobAttempts,
		BaseBackoff: cfg.RetryBackoff,
		LeaseTTL:    cfg.LeaseTTL,
	})
	svc := scheduling.NewService(store, directory, locker, dispatcher, logger, m)

	sink, err := report.NewFSSink(cfg.ReportsDir)
	if err != nil {
		logger.Error("reports sink error", "error", err)
		os.Exit(1)
	}
	cache := redisclient.NewCache(rdb, cfg.DashboardCacheTTL)

	router := api.NewRouter(api.RouterConfig{
		Service:    svc,
		Directory:  directory,
		Dispatcher: dispatcher,
		Sink:       sink,
		Cache:      cache,
		PgPool:     pgPool,
		Redis:      rdb,
		Registry:   registry,
		Logger:     logger,
		JWTSecret:  cfg.JWTSecret,
		Env:        cfg.Env,
		Version:    version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("api-server stopped")
}
