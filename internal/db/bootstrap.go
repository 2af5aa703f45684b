package db

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// bootstrapLockKey is an arbitrary advisory lock id shared by every
// process that runs Bootstrap, so only one of them seeds at a time.
const bootstrapLockKey = 743902117

// Bootstrap runs the idempotent startup setup: the default admin account
// and the reports directory. Safe to call from every process on boot;
// concurrent callers serialize on a Postgres advisory lock.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool, reportsDir string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire bootstrap conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, bootstrapLockKey); err != nil {
		return fmt.Errorf("acquire bootstrap lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, bootstrapLockKey)
	}()

	_, err = conn.Exec(ctx, `
		INSERT INTO users (id, username, role, approved, blocked, created_at)
		SELECT $1, 'admin@hms.com', 'admin', true, false, now()
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE role = 'admin')
	`, uuid.New())
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}

	if reportsDir != "" {
		if err := os.MkdirAll(reportsDir, 0o755); err != nil {
			return fmt.Errorf("create reports dir: %w", err)
		}
	}

	return nil
}
