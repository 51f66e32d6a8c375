package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/users"
	pkgauth "github.com/GolfLocker/golf-locker-pos/pkg/auth"
	"github.com/GolfLocker/golf-locker-pos/pkg/auth/session"
	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	"github.com/GolfLocker/golf-locker-pos/pkg/security"
)

// TokenPair is what a successful sign-in or refresh hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionManager is the session surface the service needs. The Redis-backed
// manager in pkg/auth/session satisfies it.
type SessionManager interface {
	Start(ctx context.Context, userID, accessID string) (string, error)
	Rotate(ctx context.Context, userID, oldAccessID, newAccessID, provided string) (string, error)
	Revoke(ctx context.Context, userID, accessID string) error
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo     users.Repository
	Sessions SessionManager
	JWT      config.JWTConfig
	Logger   *logger.Logger
}

// Service signs staff in and out of the register.
type Service struct {
	repo     users.Repository
	sessions SessionManager
	jwt      config.JWTConfig
	logg     *logger.Logger
}

// NewService constructs the auth service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &Service{
		repo:     params.Repo,
		sessions: params.Sessions,
		jwt:      params.JWT,
		logg:     params.Logger,
	}, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	if email == "" || password == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID, time.Now()); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "failed to stamp last login")
	}
	return pair, user, nil
}

// Refresh rotates the refresh token and mints a new access token. The expired
// access token identifies the session being rotated.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both tokens are required")
	}

	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	jti := uuid.NewString()
	minted, err := pkgauth.MintAccessToken(s.jwt, time.Now(), pkgauth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	rotated, err := s.sessions.Rotate(ctx, claims.UserID.String(), claims.ID, jti, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	return &TokenPair{AccessToken: minted, RefreshToken: rotated}, nil
}

// Logout revokes the session behind the access token.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.UserID.String(), claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, user *models.User) (*TokenPair, error) {
	jti := uuid.NewString()
	access, err := pkgauth.MintAccessToken(s.jwt, time.Now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refresh, err := s.sessions.Start(ctx, user.ID.String(), jti)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start session")
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
