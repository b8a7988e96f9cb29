package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/classhub/trustgate/internal/core"
)

// TypeAccess is the only token_type accepted by verifiers.
const TypeAccess = "access"

var errInvalidClaims = errors.New("invalid claims")

// Claims is the canonical claims schema used by every participant.
// Roles are encoded as a JSON array; a comma-joined string is accepted on decode.
type Claims struct {
	Roles     core.RoleSet `json:"roles"`
	TokenType string       `json:"token_type"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims were checked.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing sub", errInvalidClaims)
	}
	if c.Roles == nil {
		return fmt.Errorf("%w: missing roles", errInvalidClaims)
	}
	if c.TokenType != TypeAccess {
		return fmt.Errorf("%w: unexpected token_type %q", errInvalidClaims, c.TokenType)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing jti", errInvalidClaims)
	}
	return nil
}

// Principal builds the request-scoped principal from verified claims.
func (c *Claims) Principal() *core.Principal {
	p := &core.Principal{
		Subject: c.Subject,
		Roles:   c.Roles,
		TokenID: c.ID,
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}
