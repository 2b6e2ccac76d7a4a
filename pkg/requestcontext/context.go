// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	signer := requestcontext.Signer(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSigner(ctx, signer)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithSigner(ctx, testAuthority)
package requestcontext

import (
	"context"
	"time"

	id "tokensafe/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	signerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySigner      = signerKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Signer retrieves the authenticated caller identity from the context.
// Returns the zero identity if not set. The auth middleware is the only
// writer, so a non-zero value is always a cryptographically authenticated
// principal.
func Signer(ctx context.Context) id.AccountID {
	if signer, ok := ctx.Value(ContextKeySigner).(id.AccountID); ok {
		return signer
	}
	return id.AccountID{}
}

// WithSigner injects an authenticated caller identity into the context.
func WithSigner(ctx context.Context, signer id.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeySigner, signer)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
