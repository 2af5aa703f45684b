package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/metrics"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

// Handler executes one leased job.
type Handler interface {
	Handle(ctx context.Context, job *jobs.Job) error
}

// Pool runs N workers that lease jobs from the dispatcher. A handler
// that errors or times out gets its job failed (and retried by the
// dispatcher's backoff policy); a worker that dies mid-job loses its
// lease and the job is re-leased after expiry.
type Pool struct {
	dispatcher   jobs.Dispatcher
	handler      Handler
	count        int
	pollInterval time.Duration
	jobTimeout   time.Duration
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

type PoolOptions struct {
	Count        int
	PollInterval time.Duration
	JobTimeout   time.Duration
}

func NewPool(dispatcher jobs.Dispatcher, handler Handler, opts PoolOptions, logger *logging.Logger, m *metrics.Metrics) *Pool {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Count <= 0 {
		opts.Count = 4
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}
	return &Pool{
		dispatcher:   dispatcher,
		handler:      handler,
		count:        opts.Count,
		pollInterval: opts.PollInterval,
		jobTimeout:   opts.JobTimeout,
		logger:       logger,
		metrics:      m,
	}
}

// Run blocks until the context is cancelled and all workers have
// drained their current job.
func (p *Pool) Run(ctx context.Context) {
	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}

	p.logger.Info("worker pool started", "workers", p.count, "poll_interval", p.pollInterval.String())

	var wg sync.WaitGroup
	for i := 0; i < p.count; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("%s-%d", host, i)
		go func() {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}()
	}
	wg.Wait()

	p.logger.Info("worker pool stopped")
}

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.dispatcher.Lease(ctx, workerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("lease failed", "worker", workerID, "error", err)
			p.sleep(ctx, p.pollInterval)
			continue
		}
		if job == nil {
			p.sleep(ctx, p.pollInterval)
			continue
		}

		p.runJob(ctx, workerID, job)
	}
}

func (p *Pool) runJob(ctx context.Context, workerID string, job *jobs.Job) {
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	start := time.Now()
	err := p.handle(jobCtx, job)
	elapsed := time.Since(start)

	if err != nil {
		p.metrics.ObserveJob(string(job.Kind), "failed")
		p.logger.Error("job failed",
			"worker", workerID,
			"job_id", job.ID,
			"kind", job.Kind,
			"attempt", job.Attempts+1,
			"elapsed", elapsed.String(),
			"error", err,
		)
		if ferr := p.dispatcher.Fail(context.WithoutCancel(ctx), job.ID, err); ferr != nil {
			p.logger.Error("job fail update lost", "job_id", job.ID, "error", ferr)
		}
		return
	}

	p.metrics.ObserveJob(string(job.Kind), "done")
	p.logger.Info("job done",
		"worker", workerID,
		"job_id", job.ID,
		"kind", job.Kind,
		"elapsed", elapsed.String(),
	)
	if cerr := p.dispatcher.Complete(context.WithoutCancel(ctx), job.ID); cerr != nil {
		// The lease will expire and the job will run again; handlers
		// are idempotent so a duplicate run is harmless.
		p.logger.Error("job complete update lost", "job_id", job.ID, "error", cerr)
	}
}

// handle converts handler panics into job failures so one bad payload
// cannot take a worker down.
func (p *Pool) handle(ctx context.Context, job *jobs.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.handler.Handle(ctx, job)
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
