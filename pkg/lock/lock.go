package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

const pollInterval = 50 * time.Millisecond

// Store captures the key operations the locker needs. The Redis client
// satisfies it; tests plug in a memory map.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// Locker serializes commits across register instances with a bounded wait.
type Locker struct {
	store Store
	ttl   time.Duration
	wait  time.Duration
}

// Lease is a held lock. Release it when the critical section is done.
type Lease struct {
	store Store
	key   string
	token string
}

// New constructs a Locker.
func New(store Store, ttl, wait time.Duration) (*Locker, error) {
	if store == nil {
		return nil, fmt.Errorf("lock store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive")
	}
	if wait <= 0 {
		return nil, fmt.Errorf("lock wait must be positive")
	}
	return &Locker{store: store, ttl: ttl, wait: wait}, nil
}

// Acquire blocks up to the configured wait for the named lock. It polls
// because a register holds the lock for tens of milliseconds at most.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lease, error) {
	key := l.store.LockKey(name)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.store.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire lock")
		}
		if ok {
			return &Lease{store: l.store, key: key, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeLockTimeout, "lock wait exhausted").
				WithDetails(map[string]any{"lock": name})
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, ctx.Err(), "lock wait cancelled")
		case <-time.After(pollInterval):
		}
	}
}

// Release drops the lock if this lease still owns it. A lease that expired
// and was taken over by another holder is left alone.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	if err != nil {
		return err
	}
	if current != l.token {
		return nil
	}
	return l.store.Del(ctx, l.key)
}
