package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// Directory is the read side of the external account service: enough to
// resolve principals, find notification recipients and let admins flip
// account state. Credential storage lives elsewhere.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListByRole(ctx context.Context, role Role, approvedOnly bool) ([]User, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	SetAccountState(ctx context.Context, id uuid.UUID, approved, blocked *bool) error
}
