package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/report"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

type RouterConfig struct {
	Service    *scheduling.Service
	Directory  identity.Directory
	Dispatcher jobs.Dispatcher
	Sink       report.Sink
	Cache      *redisclient.Cache
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Registry   *prometheus.Registry
	Logger     *logging.Logger
	JWTSecret  string
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// Everything else requires a verified token.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		// Appointment endpoints
		r.Post("/appointments", bookAppointmentHandler(cfg.Service))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))

		// Patient history and exports
		r.Get("/treatments", listTreatmentsHandler(cfg.Service))
		r.Post("/treatments/export", exportTreatmentsHandler(cfg.Service))

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", dashboardHandler(cfg.Service, cfg.Cache))
			r.Get("/appointments", adminAppointmentsHandler(cfg.Service))
			r.Post("/doctors/{id}/export", exportDoctorHandler(cfg.Service, cfg.Directory))
			r.Get("/reports", listReportsHandler(cfg.Sink))
			r.Get("/reports/{name}", downloadReportHandler(cfg.Sink))
			r.Get("/jobs", listJobsHandler(cfg.Dispatcher))
			r.Get("/jobs/{id}", getJobHandler(cfg.Dispatcher))
			r.Patch("/users/{id}", updateAccountHandler(cfg.Directory))
		})
	})

	return r
}
