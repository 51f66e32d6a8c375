package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	pkgauth "github.com/GolfLocker/golf-locker-pos/pkg/auth"
	"github.com/GolfLocker/golf-locker-pos/pkg/auth/session"
	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

// AuthMiddleware validates the bearer token, checks the session is still
// registered, and puts the caller's identity on the context.
func AuthMiddleware(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token"))
				return
			}

			active, err := sessions.HasSession(r.Context(), claims.ID)
			if err != nil {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check session"))
				return
			}
			if !active {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxRole, claims.Role)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager rejects callers below the manager role.
func RequireManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Role(r.Context()) != enums.MemberRoleManager {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeForbidden, "manager role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
