// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets the values, services read them,
// and tests inject them without running the HTTP stack.
//
// The request time is the important one here: every evaluation of the
// participant state machine reads "now" from context, so a whole request
// (or a whole batch sweep) sees one consistent clock, and tests can pin it.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	endretAvKey    struct{}
)

// RequestID retrieves the request ID from the context, or "" if unset.
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

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts such as workers and CLI commands that
// did not set a batch timestamp.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware, by batch jobs that want one timestamp per sweep, and by tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// EndretAv retrieves the identity of the actor performing a change.
func EndretAv(ctx context.Context) string {
	if v, ok := ctx.Value(endretAvKey{}).(string); ok {
		return v
	}
	return ""
}

// WithEndretAv injects the acting identity into the context.
func WithEndretAv(ctx context.Context, endretAv string) context.Context {
	return context.WithValue(ctx, endretAvKey{}, endretAv)
}
