package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type testKeyer struct{}

func (testKeyer) AccessSessionKey(accessID string) string { return "access:" + accessID }
func (testKeyer) RefreshTokenKey(userID string) string    { return "refresh:" + userID }

func newTestManager() (*Manager, *memoryStore) {
	store := newMemoryStore()
	return newManagerForTest(store, testKeyer{}, time.Hour, time.Minute), store
}

func TestStartRegistersSession(t *testing.T) {
	mgr, _ := newTestManager()
	ctx := context.Background()

	token, err := mgr.Start(ctx, "user-1", "jti-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected refresh token")
	}

	ok, err := mgr.HasSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("has session failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected session to exist")
	}

	ok, err = mgr.HasSession(ctx, "jti-unknown")
	if err != nil {
		t.Fatalf("has session failed: %v", err)
	}
	if ok {
		t.Fatalf("expected unknown session to be absent")
	}
}

func TestRotateSwapsTokens(t *testing.T) {
	mgr, _ := newTestManager()
	ctx := context.Background()

	first, err := mgr.Start(ctx, "user-1", "jti-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	second, err := mgr.Rotate(ctx, "user-1", "jti-1", "jti-2", first)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if second == first {
		t.Fatalf("expected a fresh token")
	}

	if ok, _ := mgr.HasSession(ctx, "jti-1"); ok {
		t.Fatalf("expected old session to be dropped")
	}
	if ok, _ := mgr.HasSession(ctx, "jti-2"); !ok {
		t.Fatalf("expected new session to be registered")
	}

	// the old refresh token is burned
	if _, err := mgr.Rotate(ctx, "user-1", "jti-2", "jti-3", first); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRotateRejectsUnknownUser(t *testing.T) {
	mgr, _ := newTestManager()
	if _, err := mgr.Rotate(context.Background(), "ghost", "", "jti-1", "whatever"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRevokeDropsEverything(t *testing.T) {
	mgr, store := newTestManager()
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "user-1", "jti-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := mgr.Revoke(ctx, "user-1", "jti-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected empty store, got %v", store.data)
	}
}
