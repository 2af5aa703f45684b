package schedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Marks records which (schedule, period) pairs have already fired.
// TryClaim returns true exactly once per pair, which is what bounds a
// schedule to at most one firing per period no matter how many runner
// replicas tick or how late a missed tick is caught up.
type Marks interface {
	TryClaim(ctx context.Context, name, periodKey string) (bool, error)
}

// PgMarks stores fire marks in the schedule_fires table.
type PgMarks struct {
	pool *pgxpool.Pool
}

func NewPgMarks(pool *pgxpool.Pool) *PgMarks {
	return &PgMarks{pool: pool}
}

func (m *PgMarks) TryClaim(ctx context.Context, name, periodKey string) (bool, error) {
	tag, err := m.pool.Exec(ctx, `
		INSERT INTO schedule_fires (schedule_name, period_key, fired_at)
		VALUES ($1, $2, now())
		ON CONFLICT (schedule_name, period_key) DO NOTHING
	`, name, periodKey)
	if err != nil {
		return false, fmt.Errorf("claim schedule fire: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MemoryMarks keeps fire marks in process, for tests.
type MemoryMarks struct {
	mu    sync.Mutex
	fired map[string]struct{}
}

func NewMemoryMarks() *MemoryMarks {
	return &MemoryMarks{fired: make(map[string]struct{})}
}

func (m *MemoryMarks) TryClaim(ctx context.Context, name, periodKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := name + "|" + periodKey
	if _, ok := m.fired[key]; ok {
		return false, nil
	}
	m.fired[key] = struct{}{}
	return true, nil
}
