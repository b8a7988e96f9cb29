package core

import (
	"context"
	"time"
)

// Principal is the authenticated identity of the caller.
// It is rebuilt from a verified token for every request and never persisted.
type Principal struct {
	// Subject is the unique subject identifier (the "sub" claim).
	Subject string `json:"subject"`

	// Roles is the canonical role set derived from the "roles" claim.
	Roles RoleSet `json:"roles"`

	// TokenID is the "jti" of the token this principal was derived from.
	TokenID string `json:"-"`

	// ExpiresAt is the expiry of the token this principal was derived from.
	ExpiresAt time.Time `json:"expires_at"`
}

// HasAnyRole reports whether the principal holds at least one of the given roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Roles.Has(r) {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in the context, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type correlationKey struct{}

// WithCorrelationID stores the request correlation ID in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the request correlation ID, or "" outside a request.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
