// Package auth resolves the acting user for each request. Requests carry an
// HS256 bearer token whose subject is a profile ID; the role is always read
// from the profile store, never trusted from the token.
package auth

import (
	"context"

	"github.com/evcraddock/estate-bids/internal/profile"
)

// Identity is the acting user for one operation.
type Identity struct {
	UserID string       `json:"user_id"`
	Role   profile.Role `json:"role"`
}

// CanManage reports whether the identity may act as a property manager.
func (i Identity) CanManage() bool {
	return i.Role.CanManage()
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
