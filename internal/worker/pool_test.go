package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/jobs"
)

type funcHandler func(ctx context.Context, job *jobs.Job) error

func (f funcHandler) Handle(ctx context.Context, job *jobs.Job) error { return f(ctx, job) }

func waitForStatus(t *testing.T, d jobs.Dispatcher, id uuid.UUID, want jobs.Status) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := d.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %q", id, want)
}

func TestPoolCompletesJob(t *testing.T) {
	d := jobs.NewMemoryDispatcher(jobs.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	pool := NewPool(d, funcHandler(func(ctx context.Context, job *jobs.Job) error {
		handled.Add(1)
		return nil
	}), PoolOptions{Count: 2, PollInterval: 10 * time.Millisecond}, nil, nil)

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	id, err := d.Enqueue(ctx, jobs.KindDailyReminder, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitForStatus(t, d, id, jobs.StatusDone)
	if got := handled.Load(); got != 1 {
		t.Fatalf("handled = %d, want 1", got)
	}

	cancel()
	<-done
}

func TestPoolFailsJob(t *testing.T) {
	d := jobs.NewMemoryDispatcher(jobs.Options{MaxAttempts: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(d, funcHandler(func(ctx context.Context, job *jobs.Job) error {
		return errors.New("broken payload")
	}), PoolOptions{Count: 1, PollInterval: 10 * time.Millisecond}, nil, nil)

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	id, err := d.Enqueue(ctx, jobs.KindMonthlyDigest, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitForStatus(t, d, id, jobs.StatusFailed)

	job, _ := d.Get(context.Background(), id)
	if job.LastError != "broken payload" {
		t.Fatalf("last error = %q", job.LastError)
	}

	cancel()
	<-done
}

func TestPoolRecoversFromPanic(t *testing.T) {
	d := jobs.NewMemoryDispatcher(jobs.Options{MaxAttempts: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(d, funcHandler(func(ctx context.Context, job *jobs.Job) error {
		panic("bad payload")
	}), PoolOptions{Count: 1, PollInterval: 10 * time.Millisecond}, nil, nil)

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	id, err := d.Enqueue(ctx, jobs.KindExportDoctorCSV, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// The panic becomes a job failure instead of killing the worker.
	waitForStatus(t, d, id, jobs.StatusFailed)

	cancel()
	<-done
}
