// Package middleware provides the HTTP middleware chain: CORS, request
// logging with trace IDs, authentication and rate limiting.
package middleware

import (
	"context"
	"sync"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	traceIDKey contextKey = "trace_id"
)

// userIDHolder is a mutable slot so middleware that runs before
// authentication can still read the user ID after the handler returns.
type userIDHolder struct {
	mu sync.Mutex
	id string
}

func (h *userIDHolder) set(id string) {
	h.mu.Lock()
	h.id = id
	h.mu.Unlock()
}

func (h *userIDHolder) get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// WithUserScope installs an empty user slot on the context.
func WithUserScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, userIDKey, &userIDHolder{})
}

// WithUserID records the authenticated user's ID. When an enclosing
// middleware installed a user slot the ID is written through to it, making it
// visible to that middleware as well.
func WithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(userIDKey).(*userIDHolder); ok {
		h.set(userID)
		return ctx
	}
	h := &userIDHolder{}
	h.set(userID)
	return context.WithValue(ctx, userIDKey, h)
}

// GetUserID extracts the authenticated user's ID, or "".
func GetUserID(ctx context.Context) string {
	if h, ok := ctx.Value(userIDKey).(*userIDHolder); ok {
		return h.get()
	}
	return ""
}

// WithTraceID returns a context carrying the request trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID extracts the request trace ID, or "".
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}
