package token

import (
	"context"
	"fmt"

	"github.com/classhub/trustgate/internal/core"
)

// RevocationChecker answers whether a token ID was revoked.
// Implementations decide how to behave when their backing store is unreachable.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

// Verifier is the single verification path used by the edge gateway and by
// every service. It never reads ambient state: keys, clock and revocation
// checker are all fixed at construction.
type Verifier struct {
	codec      *Codec
	revocation RevocationChecker
}

// NewVerifier creates a verifier. revocation may be nil to verify on
// signature and expiry alone.
func NewVerifier(codec *Codec, revocation RevocationChecker) *Verifier {
	return &Verifier{
		codec:      codec,
		revocation: revocation,
	}
}

// WithoutRevocation returns a verifier sharing the codec but skipping the revocation lookup.
func (v *Verifier) WithoutRevocation() *Verifier {
	return &Verifier{codec: v.codec}
}

// Verify checks signature, expiry and revocation state and returns the principal.
func (v *Verifier) Verify(ctx context.Context, raw string) (*core.Principal, error) {
	claims, err := v.codec.Parse(raw)
	if err != nil {
		return nil, err
	}
	if v.revocation != nil && v.revocation.IsRevoked(ctx, claims.ID) {
		return nil, fmt.Errorf("%w: jti %s", core.ErrRevokedToken, claims.ID)
	}
	return claims.Principal(), nil
}

// Valid reports whether Verify succeeds. It never panics or returns an error.
func (v *Verifier) Valid(ctx context.Context, raw string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := v.Verify(ctx, raw)
	return err == nil
}

// Codec exposes the underlying codec.
func (v *Verifier) Codec() *Codec {
	return v.codec
}
