package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/metrics"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

const (
	NameDailyReminder = "daily_reminder"
	NameMonthlyDigest = "monthly_digest"
)

// A Schedule fires once per period after its due time of day has
// passed. DayOfMonth 0 means daily; otherwise the schedule is monthly
// and fires on that day.
type Schedule struct {
	Name       string
	Hour       int
	DayOfMonth int
}

// due reports whether the schedule's fire time for the current period
// has passed. A runner that was down at the exact fire time still
// catches up on its next tick, because due stays true for the rest of
// the period.
func (s Schedule) due(now time.Time) bool {
	if s.DayOfMonth == 0 {
		return now.Hour() >= s.Hour
	}
	if now.Day() < s.DayOfMonth {
		return false
	}
	if now.Day() > s.DayOfMonth {
		return true
	}
	return now.Hour() >= s.Hour
}

// periodKey identifies the period a firing belongs to: one key per day
// for daily schedules, one per month for monthly ones.
func (s Schedule) periodKey(now time.Time) string {
	if s.DayOfMonth == 0 {
		return now.Format(time.DateOnly)
	}
	return now.Format("2006-01")
}

// Runner evaluates schedules on a fixed tick and enqueues jobs for the
// ones that are due and unclaimed. All real work happens in the job
// workers; the runner only decides that a period's work should exist.
type Runner struct {
	schedules  []Schedule
	marks      Marks
	dispatcher jobs.Dispatcher
	directory  identity.Directory
	interval   time.Duration
	logger     *logging.Logger
	metrics    *metrics.Metrics

	now func() time.Time // overridable in tests
}

func NewRunner(schedules []Schedule, marks Marks, dispatcher jobs.Dispatcher, directory identity.Directory, interval time.Duration, logger *logging.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		schedules:  schedules,
		marks:      marks,
		dispatcher: dispatcher,
		directory:  directory,
		interval:   interval,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// DefaultSchedules returns the built-in schedules: the daily reminder
// and the monthly per-doctor digest on the first of the month.
func DefaultSchedules(reminderHour, digestHour int) []Schedule {
	return []Schedule{
		{Name: NameDailyReminder, Hour: reminderHour},
		{Name: NameMonthlyDigest, Hour: digestHour, DayOfMonth: 1},
	}
}

// Run ticks until the context is cancelled. An error on one schedule
// never blocks the others.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("task runner started", "interval", r.interval.String(), "schedules", len(r.schedules))

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("task runner stopping")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick evaluates every schedule once against the current time.
func (r *Runner) Tick(ctx context.Context) {
	now := r.now()
	for _, s := range r.schedules {
		if !s.due(now) {
			continue
		}
		claimed, err := r.marks.TryClaim(ctx, s.Name, s.periodKey(now))
		if err != nil {
			r.logger.Error("schedule claim failed", "schedule", s.Name, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		if err := r.fire(ctx, s, now); err != nil {
			r.logger.Error("schedule fire failed", "schedule", s.Name, "error", err)
			continue
		}
		r.metrics.ObserveScheduleFire(s.Name)
		r.logger.Info("schedule fired", "schedule", s.Name, "period", s.periodKey(now))
	}
}

func (r *Runner) fire(ctx context.Context, s Schedule, now time.Time) error {
	switch s.Name {
	case NameDailyReminder:
		payload := jobs.DailyReminderPayload{Date: now.Format(time.DateOnly)}
		if _, err := r.dispatcher.Enqueue(ctx, jobs.KindDailyReminder, payload); err != nil {
			return fmt.Errorf("enqueue daily reminder: %w", err)
		}
		return nil

	case NameMonthlyDigest:
		// Digest covers the month that just ended.
		prev := now.AddDate(0, -1, 0)
		doctors, err := r.directory.ListByRole(ctx, identity.RoleDoctor, true)
		if err != nil {
			return fmt.Errorf("list doctors for digest: %w", err)
		}
		for _, doc := range doctors {
			payload := jobs.MonthlyDigestPayload{
				DoctorID: doc.ID,
				Year:     prev.Year(),
				Month:    int(prev.Month()),
			}
			if _, err := r.dispatcher.Enqueue(ctx, jobs.KindMonthlyDigest, payload); err != nil {
				return fmt.Errorf("enqueue digest for doctor %s: %w", doc.ID, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown schedule %q", s.Name)
	}
}
