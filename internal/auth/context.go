// ABOUTME: Verified caller identity for tracking who invoked a request
// ABOUTME: Provides WithCaller/FromContext for propagating the caller via context

package auth

import (
	"context"
)

// AdminClaim is the custom claim that grants administrative privilege.
const AdminClaim = "admin"

// Caller holds the verified identity of the invoker of a request.
// A nil *Caller means the request is unauthenticated.
type Caller struct {
	UserID string         // subject of the verified credential
	Claims map[string]any // verified claims, custom claims flattened in
}

// IsAdmin returns true only if the admin claim is present and boolean true.
func (c *Caller) IsAdmin() bool {
	if c == nil {
		return false
	}
	admin, ok := c.Claims[AdminClaim].(bool)
	return ok && admin
}

// callerContextKey is the key type for storing Caller in context.Context.
type callerContextKey struct{}

// WithCaller returns a new context with the Caller attached.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// FromContext retrieves the Caller from the context, returning nil if not present.
func FromContext(ctx context.Context) *Caller {
	val := ctx.Value(callerContextKey{})
	if val == nil {
		return nil
	}
	caller, ok := val.(*Caller)
	if !ok {
		return nil
	}
	return caller
}
