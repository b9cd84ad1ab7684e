package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// SessionContextKey is the router.Context locals key the gate stores the
// authenticated snapshot under.
const SessionContextKey = "auth_session"

// WithSessionContext sets the session snapshot in the given context
func WithSessionContext(r context.Context, snapshot *SessionSnapshot) context.Context {
	return context.WithValue(r, sessionCtxKey, snapshot)
}

// SessionFromContext finds the snapshot from the context.
func SessionFromContext(ctx context.Context) (*SessionSnapshot, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionSnapshot)
	return raw, ok
}

// RouterSession extracts the authenticated snapshot from the router context.
func RouterSession(ctx router.Context) (*SessionSnapshot, bool) {
	raw := ctx.Locals(SessionContextKey)
	if raw == nil {
		return nil, false
	}
	snapshot, ok := raw.(*SessionSnapshot)
	return snapshot, ok
}

// HasRole checks the authenticated user's role directly from the context.
func HasRole(ctx context.Context, role UserRole) bool {
	snapshot, ok := SessionFromContext(ctx)
	if !ok {
		return false
	}
	return snapshot.Role == role
}
