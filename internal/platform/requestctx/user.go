// Package requestctx carries the resolved caller identity between the
// transport middleware and request handlers.
package requestctx

import "context"

// Identity is the attribute-limited view of an authenticated caller.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// identityContextKey is the context key for authenticated identity.
type identityContextKey struct{}

// WithIdentity stores a resolved identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored in context. ok is false
// when no identity with a non-empty ID was attached.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	value, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || value.ID == "" {
		return Identity{}, false
	}
	return value, true
}

// UserIDFromContext returns the identity ID stored in context.
func UserIDFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.ID
}
