package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Role,
		&u.Approved,
		&u.Blocked,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (d *PgDirectory) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, username, role, approved, blocked, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (d *PgDirectory) ListByRole(ctx context.Context, role Role, approvedOnly bool) ([]User, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, username, role, approved, blocked, created_at
		FROM users
		WHERE role = $1
		  AND ($2 = false OR (approved = true AND blocked = false))
		ORDER BY created_at
	`, role, approvedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (d *PgDirectory) CountByRole(ctx context.Context, role Role) (int, error) {
	var n int
	err := d.pool.QueryRow(ctx, `
		SELECT count(*) FROM users WHERE role = $1
	`, role).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (d *PgDirectory) SetAccountState(ctx context.Context, id uuid.UUID, approved, blocked *bool) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE users
		SET approved = COALESCE($2, approved),
		    blocked  = COALESCE($3, blocked)
		WHERE id = $1
	`, id, approved, blocked)
	if err != nil {
		return fmt.Errorf("set account state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
