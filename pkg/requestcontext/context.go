// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter pairs live here so that values set by
// middleware can be consumed by services without importing net/http. Tests
// inject values the same way:
//
//	ctx = requestcontext.WithCaller(ctx, "acct-alice")
//	ctx = requestcontext.WithTick(ctx, 42)
package requestcontext

import (
	"context"

	id "custodia/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	callerKey    struct{}
	requestIDKey struct{}
	tickKey      struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCaller    = callerKey{}
	ContextKeyRequestID = requestIDKey{}
	ContextKeyTick      = tickKey{}
)

// Caller retrieves the authenticated caller's ledger account from the
// context. Returns the zero value if not set.
func Caller(ctx context.Context) id.AccountID {
	if acct, ok := ctx.Value(ContextKeyCaller).(id.AccountID); ok {
		return acct
	}
	return ""
}

// WithCaller injects the authenticated caller account into the context.
func WithCaller(ctx context.Context, caller id.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
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

// Tick retrieves a request-scoped logical tick override from the context.
// The second return reports whether an override is present; callers fall back
// to the ambient clock when it is not. Used by tests and batch workers that
// need every comparison inside one operation to see the same tick.
func Tick(ctx context.Context) (id.Tick, bool) {
	t, ok := ctx.Value(ContextKeyTick).(id.Tick)
	return t, ok
}

// WithTick injects a specific logical tick into a context.
func WithTick(ctx context.Context, t id.Tick) context.Context {
	return context.WithValue(ctx, ContextKeyTick, t)
}
