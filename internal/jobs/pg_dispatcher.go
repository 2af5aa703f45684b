package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDispatcher struct {
	pool *pgxpool.Pool
	opts Options
}

func NewPgDispatcher(pool *pgxpool.Pool, opts Options) *PgDispatcher {
	return &PgDispatcher{pool: pool, opts: opts.withDefaults()}
}

const jobColumns = `id, kind, payload, status, attempts, run_at, lease_worker, lease_expires, last_error, enqueued_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var leaseExpires *time.Time

	err := row.Scan(
		&j.ID,
		&j.Kind,
		&j.Payload,
		&j.Status,
		&j.Attempts,
		&j.RunAt,
		&j.LeaseWorker,
		&leaseExpires,
		&j.LastError,
		&j.EnqueuedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	j.LeaseExpires = leaseExpires
	return &j, nil
}

func (d *PgDispatcher) Enqueue(ctx context.Context, kind Kind, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job payload: %w", err)
	}

	id := uuid.New()
	_, err = d.pool.Exec(ctx, `
		INSERT INTO jobs (id, kind, payload, status, attempts, run_at, lease_worker, last_error, enqueued_at, updated_at)
		VALUES ($1, $2, $3, 'pending', 0, now(), '', '', now(), now())
	`, id, kind, data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}

	return id, nil
}

// Lease claims one job with FOR UPDATE SKIP LOCKED, so concurrent workers
// never see the same candidate row. Expired leases are claimed the same
// way as fresh Pending jobs.
func (d *PgDispatcher) Lease(ctx context.Context, workerID string) (*Job, error) {
	row := d.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'running',
		    lease_worker = $1,
		    lease_expires = now() + $2,
		    updated_at = now()
		WHERE id = (
			SELECT id
			FROM jobs
			WHERE (status = 'pending' AND run_at <= now())
			   OR (status = 'running' AND lease_expires < now())
			ORDER BY run_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns+`
	`, workerID, d.opts.LeaseTTL)

	job, err := scanJob(row)
	if errors.Is(err, ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease job: %w", err)
	}
	return job, nil
}

func (d *PgDispatcher) Complete(ctx context.Context, jobID uuid.UUID) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'done',
		    lease_worker = '',
		    lease_expires = NULL,
		    updated_at = now()
		WHERE id = $1
	`, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (d *PgDispatcher) Fail(ctx context.Context, jobID uuid.UUID, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin fail tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var attempts int
	err = tx.QueryRow(ctx, `
		SELECT attempts FROM jobs WHERE id = $1 FOR UPDATE
	`, jobID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrJobNotFound
		}
		return fmt.Errorf("load job for fail: %w", err)
	}

	attempts++
	if attempts >= d.opts.MaxAttempts {
		_, err = tx.Exec(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    attempts = $2,
			    last_error = $3,
			    lease_worker = '',
			    lease_expires = NULL,
			    updated_at = now()
			WHERE id = $1
		`, jobID, attempts, msg)
	} else {
		backoff := nextBackoff(d.opts.BaseBackoff, attempts-1)
		_, err = tx.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    attempts = $2,
			    last_error = $3,
			    run_at = now() + $4,
			    lease_worker = '',
			    lease_expires = NULL,
			    updated_at = now()
			WHERE id = $1
		`, jobID, attempts, msg, backoff)
	}
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fail tx: %w", err)
	}
	return nil
}

func (d *PgDispatcher) Get(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, jobID)
	return scanJob(row)
}

func (d *PgDispatcher) List(ctx context.Context, status Status, limit int) ([]Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *j)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
