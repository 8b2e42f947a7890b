// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the acting user, request id and request time; services and
// stores read them without importing net/http:
//
//	user := requestcontext.User(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject a fixed clock:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// SystemUser is recorded in audit fields when no acting user is known.
const SystemUser = "system"

type (
	userKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// User returns the acting user, or SystemUser when none was set.
func User(ctx context.Context) string {
	if user, ok := ctx.Value(userKey{}).(string); ok && user != "" {
		return user
	}
	return SystemUser
}

// WithUser injects the acting user into the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to the wall clock.
// Returned times are always UTC.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok && !t.IsZero() {
		return t.UTC()
	}
	return time.Now().UTC()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
