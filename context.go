package gantry

import (
	"context"

	"github.com/google/uuid"
	"github.com/tfkr-ae/gantry/core"
	"github.com/tfkr-ae/gantry/domain"
)

type contextKey string

const (
	// SessionIDKey is the context key for the session ID (uuid.UUID) of a websocket or interactive CLI session
	SessionIDKey contextKey = "SessionID"
	// ScopeKey is the context key for the table scope (string), "launchpads" or a launchpad ID
	ScopeKey contextKey = "Scope"
)

// ContextWithSessionID returns a new context carrying the session ID
func ContextWithSessionID(ctx context.Context, sessionID uuid.UUID) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// SessionIDFromContext returns the session ID from the context if it exists
func SessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(SessionIDKey).(uuid.UUID)
	return id, ok
}

// ContextWithScope returns a new context carrying the table scope
func ContextWithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// ScopeFromContext returns the table scope from the context if it exists
func ScopeFromContext(ctx context.Context) (string, bool) {
	scope, ok := ctx.Value(ScopeKey).(string)
	return scope, ok
}

// LogOptionsFromContext turns the session ID and scope found in ctx into log options.
func LogOptionsFromContext(ctx context.Context) []func(*domain.Log) error {
	var options []func(*domain.Log) error
	if id, ok := SessionIDFromContext(ctx); ok {
		options = append(options, core.LogWithSessionID(id))
	}
	if scope, ok := ScopeFromContext(ctx); ok {
		options = append(options, core.LogWithScope(scope))
	}
	return options
}
