package tripauth

import (
	"context"

	"github.com/goliatone/go-router"
)

// IdentityLocalsKey is the router locals key the middleware stores the
// resolved identity under.
const IdentityLocalsKey = "identity"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(r context.Context, identity *AccountIdentity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the standard context.
func IdentityFromContext(ctx context.Context) (*AccountIdentity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*AccountIdentity)
	return raw, ok
}

// RouterIdentity extracts the identity from the router context locals.
func RouterIdentity(ctx router.Context) (*AccountIdentity, bool) {
	raw := ctx.Locals(IdentityLocalsKey)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(*AccountIdentity)
	return identity, ok
}

// HasRole reports whether the context identity carries the role.
func HasRole(ctx context.Context, role string) bool {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range identity.Roles() {
		if r == role {
			return true
		}
	}
	return false
}
