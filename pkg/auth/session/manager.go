package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	redisclient "github.com/GolfLocker/golf-locker-pos/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	RefreshTokenKey(userID string) string
}

// Manager handles refresh token creation, storage, and rotation.
type Manager struct {
	store     sessionStore
	keyer     sessionKeyer
	ttl       time.Duration
	accessTTL time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store:     client,
		keyer:     client,
		ttl:       ttl,
		accessTTL: accessTTL,
	}, nil
}

// newManagerForTest wires arbitrary store/keyer implementations.
func newManagerForTest(store sessionStore, keyer sessionKeyer, ttl, accessTTL time.Duration) *Manager {
	return &Manager{store: store, keyer: keyer, ttl: ttl, accessTTL: accessTTL}
}

// Start creates a refresh token for the user and registers the access session.
func (m *Manager) Start(ctx context.Context, userID, accessID string) (string, error) {
	if userID == "" || accessID == "" {
		return "", fmt.Errorf("user id and access id are required")
	}

	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}

	if err := m.store.Set(ctx, m.keyer.RefreshTokenKey(userID), token, m.ttl); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID, m.accessTTL); err != nil {
		return "", fmt.Errorf("store access session: %w", err)
	}
	return token, nil
}

// HasSession reports whether the access session is still registered.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	_, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if redisclient.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Rotate validates the provided refresh token for the user and swaps in a new
// one, registering the new access session and dropping the old.
func (m *Manager) Rotate(ctx context.Context, userID, oldAccessID, newAccessID, provided string) (string, error) {
	stored, err := m.store.Get(ctx, m.keyer.RefreshTokenKey(userID))
	if err != nil {
		if redisclient.IsNil(err) {
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", ErrInvalidRefreshToken
	}

	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.RefreshTokenKey(userID), token, m.ttl); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(newAccessID), userID, m.accessTTL); err != nil {
		return "", fmt.Errorf("store access session: %w", err)
	}
	if oldAccessID != "" {
		_ = m.store.Del(ctx, m.keyer.AccessSessionKey(oldAccessID))
	}
	return token, nil
}

// Revoke drops the refresh token and access session for the user.
func (m *Manager) Revoke(ctx context.Context, userID, accessID string) error {
	keys := []string{m.keyer.RefreshTokenKey(userID)}
	if accessID != "" {
		keys = append(keys, m.keyer.AccessSessionKey(accessID))
	}
	return m.store.Del(ctx, keys...)
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
