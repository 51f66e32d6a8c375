package auth

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/users"
	pkgauth "github.com/GolfLocker/golf-locker-pos/pkg/auth"
	"github.com/GolfLocker/golf-locker-pos/pkg/auth/session"
	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/security"
)

type stubSessions struct {
	started   bool
	rotated   bool
	revoked   bool
	rotateErr error
}

func (s *stubSessions) Start(_ context.Context, _, _ string) (string, error) {
	s.started = true
	return "refresh-token-1", nil
}

func (s *stubSessions) Rotate(_ context.Context, _, _, _, _ string) (string, error) {
	if s.rotateErr != nil {
		return "", s.rotateErr
	}
	s.rotated = true
	return "refresh-token-2", nil
}

func (s *stubSessions) Revoke(_ context.Context, _, _ string) error {
	s.revoked = true
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "golf-locker-pos",
		ExpirationMinutes: 15,
	}
}

func newTestService(t *testing.T, sessions SessionManager) (*Service, users.Repository) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo := users.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Sessions: sessions,
		JWT:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, repo
}

func seedUser(t *testing.T, repo users.Repository, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "Staff",
		Role:         enums.MemberRoleStaff,
		IsActive:     active,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	return user
}

func TestLoginIssuesTokenPair(t *testing.T) {
	sessions := &stubSessions{}
	svc, repo := newTestService(t, sessions)
	user := seedUser(t, repo, "staff@golflocker.test", "correct horse", true)

	pair, got, err := svc.Login(context.Background(), "STAFF@golflocker.test", "correct horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken != "refresh-token-1" {
		t.Fatalf("unexpected pair %+v", pair)
	}
	if !sessions.started {
		t.Fatalf("expected a session to be started")
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user returned")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.MemberRoleStaff {
		t.Fatalf("unexpected claims %+v", claims)
	}

	loaded, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.LastLoginAt == nil {
		t.Fatalf("expected last login stamp")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo := newTestService(t, &stubSessions{})
	seedUser(t, repo, "staff@golflocker.test", "correct horse", true)

	_, _, err := svc.Login(context.Background(), "staff@golflocker.test", "wrong")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	svc, _ := newTestService(t, &stubSessions{})

	_, _, err := svc.Login(context.Background(), "nobody@golflocker.test", "whatever")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	svc, repo := newTestService(t, &stubSessions{})
	seedUser(t, repo, "former@golflocker.test", "correct horse", false)

	_, _, err := svc.Login(context.Background(), "former@golflocker.test", "correct horse")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	sessions := &stubSessions{}
	svc, repo := newTestService(t, sessions)
	seedUser(t, repo, "staff@golflocker.test", "correct horse", true)

	pair, _, err := svc.Login(context.Background(), "staff@golflocker.test", "correct horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), pair.AccessToken, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken != "refresh-token-2" || rotated.AccessToken == "" {
		t.Fatalf("unexpected pair %+v", rotated)
	}
	if !sessions.rotated {
		t.Fatalf("expected rotation")
	}
}

func TestRefreshWithBadRefreshToken(t *testing.T) {
	sessions := &stubSessions{rotateErr: session.ErrInvalidRefreshToken}
	svc, repo := newTestService(t, sessions)
	seedUser(t, repo, "staff@golflocker.test", "correct horse", true)

	pair, _, err := svc.Login(context.Background(), "staff@golflocker.test", "correct horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	_, err = svc.Refresh(context.Background(), pair.AccessToken, "stolen")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessions{}
	svc, repo := newTestService(t, sessions)
	seedUser(t, repo, "staff@golflocker.test", "correct horse", true)

	pair, _, err := svc.Login(context.Background(), "staff@golflocker.test", "correct horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := svc.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !sessions.revoked {
		t.Fatalf("expected revocation")
	}
}
