package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns every request an id, honoring one supplied by
// the client, and attaches it to the response and the context logger.
func RequestIDMiddleware(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), ctxRequestID, requestID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, requestID)
			}
			w.Header().Set(requestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
