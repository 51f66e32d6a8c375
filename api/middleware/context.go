package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
)

type ctxKey string

const (
	ctxUserID    ctxKey = "user_id"
	ctxRole      ctxKey = "role"
	ctxRequestID ctxKey = "request_id"
)

// UserID returns the authenticated user's id, or uuid.Nil.
func UserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// Role returns the authenticated user's role, or the empty role.
func Role(ctx context.Context) enums.MemberRole {
	if role, ok := ctx.Value(ctxRole).(enums.MemberRole); ok {
		return role
	}
	return ""
}

// RequestID returns the id assigned to this request.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxRequestID).(string); ok {
		return id
	}
	return ""
}
