package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const callerIDKey contextKey = iota

// WithCallerID returns a context carrying the authenticated caller's id.
func WithCallerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, callerIDKey, id)
}

// CallerID extracts the authenticated caller's id from the context.
func CallerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerIDKey).(uuid.UUID)
	return id, ok
}

// ContextSource resolves the caller id from the request context. It is the
// production implementation of accounts.CallerSource.
type ContextSource struct{}

// CallerID implements accounts.CallerSource.
func (ContextSource) CallerID(ctx context.Context) (uuid.UUID, bool) {
	return CallerID(ctx)
}
