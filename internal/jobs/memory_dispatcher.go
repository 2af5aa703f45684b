package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDispatcher keeps jobs in process with the same lease semantics as
// the Postgres dispatcher. Used by tests and the dev environment.
type MemoryDispatcher struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
	opts Options

	now func() time.Time // overridable in tests
}

func NewMemoryDispatcher(opts Options) *MemoryDispatcher {
	return &MemoryDispatcher{
		jobs: make(map[uuid.UUID]*Job),
		opts: opts.withDefaults(),
		now:  time.Now,
	}
}

func (d *MemoryDispatcher) Enqueue(ctx context.Context, kind Kind, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job payload: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	job := &Job{
		ID:         uuid.New(),
		Kind:       kind,
		Payload:    data,
		Status:     StatusPending,
		RunAt:      now,
		EnqueuedAt: now,
		UpdatedAt:  now,
	}
	d.jobs[job.ID] = job
	return job.ID, nil
}

func (d *MemoryDispatcher) Lease(ctx context.Context, workerID string) (*Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	var candidate *Job
	for _, j := range d.jobs {
		due := (j.Status == StatusPending && !j.RunAt.After(now)) ||
			(j.Status == StatusRunning && j.LeaseExpires != nil && j.LeaseExpires.Before(now))
		if !due {
			continue
		}
		if candidate == nil || j.RunAt.Before(candidate.RunAt) {
			candidate = j
		}
	}
	if candidate == nil {
		return nil, nil
	}

	expires := now.Add(d.opts.LeaseTTL)
	candidate.Status = StatusRunning
	candidate.LeaseWorker = workerID
	candidate.LeaseExpires = &expires
	candidate.UpdatedAt = now

	cp := *candidate
	return &cp, nil
}

func (d *MemoryDispatcher) Complete(ctx context.Context, jobID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, ok := d.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	j.Status = StatusDone
	j.LeaseWorker = ""
	j.LeaseExpires = nil
	j.UpdatedAt = d.now()
	return nil
}

func (d *MemoryDispatcher) Fail(ctx context.Context, jobID uuid.UUID, jobErr error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, ok := d.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	if jobErr != nil {
		j.LastError = jobErr.Error()
	}
	j.Attempts++
	j.LeaseWorker = ""
	j.LeaseExpires = nil
	j.UpdatedAt = d.now()

	if j.Attempts >= d.opts.MaxAttempts {
		j.Status = StatusFailed
	} else {
		j.Status = StatusPending
		j.RunAt = d.now().Add(nextBackoff(d.opts.BaseBackoff, j.Attempts-1))
	}
	return nil
}

func (d *MemoryDispatcher) Get(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, ok := d.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (d *MemoryDispatcher) List(ctx context.Context, status Status, limit int) ([]Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var result []Job
	for _, j := range d.jobs {
		if status != "" && j.Status != status {
			continue
		}
		result = append(result, *j)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].UpdatedAt.After(result[k].UpdatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
