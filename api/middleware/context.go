package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated user id and role. ok is false when the
// request did not pass through Auth or the id is malformed.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, enums.UserRole(RoleFromContext(ctx)), true
}

// WithActor injects the caller identity. Only Auth and tests should call it.
func WithActor(ctx context.Context, userID string, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, string(role))
}
