package auth

import (
	"context"
	"fmt"
)

// Mechanism records how an identity proved itself
type Mechanism string

const (
	MechanismSSO    Mechanism = "sso"
	MechanismBearer Mechanism = "bearer"
)

// Identity is the principal resolved for a single request. It lives on the request
// context only and is never written back anywhere.
type Identity struct {
	Principal string    // Account name
	Mechanism Mechanism // sso | bearer

	SessionID string // Set for sso identities
	CSRFToken string // Set for sso identities
	Token     string // Upstream auth token obtained through sso, redacted in String()
}

// String redacts the upstream token so identities can be logged
func (i *Identity) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Identity{Principal:%q, Mechanism:%s}", i.Principal, i.Mechanism)
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the authenticated *Identity
const ContextKeyIdentity ContextKey = "identity"

// WithIdentity attaches an identity to the context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// IdentityFromContext returns the identity attached by the route's strategy, if any
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(*Identity)
	return id, ok && id != nil
}
