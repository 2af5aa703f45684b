package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("job not found")

// Dispatcher owns job records. Workers never touch job state directly;
// they go through Lease/Complete/Fail so that mutual exclusion rides on
// the lease, not on worker goodwill.
type Dispatcher interface {
	// Enqueue persists a Pending job and returns immediately.
	Enqueue(ctx context.Context, kind Kind, payload any) (uuid.UUID, error)

	// Lease atomically claims one due Pending job (or one Running job
	// whose lease expired) for workerID. Returns nil when nothing is due.
	Lease(ctx context.Context, workerID string) (*Job, error)

	// Complete marks a job Done.
	Complete(ctx context.Context, jobID uuid.UUID) error

	// Fail records the error and either reschedules the job with backoff
	// or, once attempts reach the ceiling, marks it terminally Failed.
	Fail(ctx context.Context, jobID uuid.UUID, jobErr error) error

	// Inspection
	Get(ctx context.Context, jobID uuid.UUID) (*Job, error)
	List(ctx context.Context, status Status, limit int) ([]Job, error)
}

// Options tune retry and lease behavior; zero values fall back to defaults.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
	LeaseTTL    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 30 * time.Second
	}
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = 2 * time.Minute
	}
	return o
}

// nextBackoff doubles per attempt, capped at an hour.
func nextBackoff(base time.Duration, attempts int) time.Duration {
	delay := base * time.Duration(1<<attempts)
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}
