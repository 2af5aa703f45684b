package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-process Directory used by tests and the dev
// environment.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[uuid.UUID]User)}
}

func (d *MemoryDirectory) Put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryDirectory) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *MemoryDirectory) ListByRole(ctx context.Context, role Role, approvedOnly bool) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []User
	for _, u := range d.users {
		if u.Role != role {
			continue
		}
		if approvedOnly && (!u.Approved || u.Blocked) {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (d *MemoryDirectory) CountByRole(ctx context.Context, role Role) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, u := range d.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (d *MemoryDirectory) SetAccountState(ctx context.Context, id uuid.UUID, approved, blocked *bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if approved != nil {
		u.Approved = *approved
	}
	if blocked != nil {
		u.Blocked = *blocked
	}
	d.users[id] = u
	return nil
}
