package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSlotLocker(client, 5*time.Second), mr
}

func TestWithSlotLockRunsCallback(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), uuid.New(), "2026-09-14", "10:30", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithSlotLock: %v", err)
	}
	if !ran {
		t.Fatal("callback did not run")
	}
}

func TestWithSlotLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)
	doctorID := uuid.New()

	err := locker.WithSlotLock(context.Background(), doctorID, "2026-09-14", "10:30", func(ctx context.Context) error {
		// Same slot while held.
		inner := locker.WithSlotLock(ctx, doctorID, "2026-09-14", "10:30", func(ctx context.Context) error {
			t.Fatal("second holder entered the critical section")
			return nil
		})
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Fatalf("inner err = %v, want ErrLockNotAcquired", inner)
		}

		// A different slot is a different lock.
		other := locker.WithSlotLock(ctx, doctorID, "2026-09-14", "11:00", func(ctx context.Context) error {
			return nil
		})
		if other != nil {
			t.Fatalf("other slot err = %v", other)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSlotLock: %v", err)
	}
}

func TestWithSlotLockReleasedAfterCallback(t *testing.T) {
	locker, _ := newTestLocker(t)
	doctorID := uuid.New()

	for i := 0; i < 3; i++ {
		err := locker.WithSlotLock(context.Background(), doctorID, "2026-09-14", "10:30", func(ctx context.Context) error {
			return nil
		})
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
}

func TestWithSlotLockCallbackErrorPropagates(t *testing.T) {
	locker, _ := newTestLocker(t)

	boom := errors.New("boom")
	err := locker.WithSlotLock(context.Background(), uuid.New(), "2026-09-14", "10:30", func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want callback error", err)
	}
}

func TestWithSlotLockExpiresWithTTL(t *testing.T) {
	locker, mr := newTestLocker(t)
	doctorID := uuid.New()

	err := locker.WithSlotLock(context.Background(), doctorID, "2026-09-14", "10:30", func(ctx context.Context) error {
		// A holder that outlives the TTL loses the lock to the next caller.
		mr.FastForward(6 * time.Second)

		next := locker.WithSlotLock(ctx, doctorID, "2026-09-14", "10:30", func(ctx context.Context) error {
			return nil
		})
		if next != nil {
			t.Fatalf("post-expiry acquire err = %v", next)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSlotLock: %v", err)
	}
}
