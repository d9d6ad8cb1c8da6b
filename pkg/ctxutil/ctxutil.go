package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	playerIDKey  ctxKey = "player_id"
	requestIDKey ctxKey = "request_id"
)

// WithPlayerID stores the authenticated player ID in the context.
func WithPlayerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, playerIDKey, id)
}

// PlayerIDFromCtx extracts the player ID from the context.
// Returns uuid.Nil and false for anonymous requests.
func PlayerIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(playerIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// PlayerRef returns a pointer to the player ID, or nil for anonymous
// requests.
func PlayerRef(ctx context.Context) *uuid.UUID {
	id, ok := PlayerIDFromCtx(ctx)
	if !ok {
		return nil
	}
	return &id
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
