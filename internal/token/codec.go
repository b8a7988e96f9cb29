package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/classhub/trustgate/internal/core"
)

// Options configures a Codec.
type Options struct {
	// Issuer is written to and required in the "iss" claim. Empty disables the check.
	Issuer string

	// AccessTTL is the lifetime of issued access tokens.
	AccessTTL time.Duration

	// ClockSkew is the leeway granted when checking "exp".
	ClockSkew time.Duration

	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Issued is a freshly signed access token.
type Issued struct {
	Value  string
	Claims *Claims
}

// ExpiresAt returns the (second-truncated) expiry written into the token.
func (i *Issued) ExpiresAt() time.Time {
	return i.Claims.ExpiresAt.Time
}

// Codec signs and parses access tokens with a Keyring.
// It is safe for concurrent use and holds no mutable state.
type Codec struct {
	keys      *Keyring
	issuer    string
	accessTTL time.Duration
	clock     clockwork.Clock
	parser    *jwt.Parser
	unchecked *jwt.Parser
}

func NewCodec(keys *Keyring, opts Options) *Codec {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(opts.Clock.Now),
		jwt.WithLeeway(opts.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	return &Codec{
		keys:      keys,
		issuer:    opts.Issuer,
		accessTTL: opts.AccessTTL,
		clock:     opts.Clock,
		parser:    jwt.NewParser(parserOpts...),
		unchecked: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// Issuer returns the expected "iss" claim, empty when unchecked.
func (c *Codec) Issuer() string {
	return c.issuer
}

// KeyID returns the ID of the active signing key.
func (c *Codec) KeyID() string {
	return c.keys.ActiveID()
}

// Issue signs a new access token for the subject and roles.
func (c *Codec) Issue(subject string, roles core.RoleSet) (*Issued, error) {
	if subject == "" {
		return nil, errors.New("subject must not be empty")
	}
	if roles == nil {
		roles = core.RoleSet{}
	}

	now := c.clock.Now()
	claims := &Claims{
		Roles:     roles,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	kid, key := c.keys.signingKey()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	return &Issued{Value: signed, Claims: claims}, nil
}

// Parse verifies signature, expiry and claim shape. Errors are mapped to the
// core taxonomy (ErrMalformedToken, ErrInvalidSignature, ErrExpiredToken).
func (c *Codec) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, core.ErrMissingCredential
	}
	var claims Claims
	if _, err := c.parser.ParseWithClaims(raw, &claims, c.keys.keyFunc); err != nil {
		return nil, classify(err)
	}
	return &claims, nil
}

// ParseIgnoringExpiry verifies the signature but not the time-based claims.
// It is used where only the subject is needed, e.g. auditing a logout.
func (c *Codec) ParseIgnoringExpiry(raw string) (*Claims, error) {
	if raw == "" {
		return nil, core.ErrMissingCredential
	}
	var claims Claims
	if _, err := c.unchecked.ParseWithClaims(raw, &claims, c.keys.keyFunc); err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", core.ErrMalformedToken)
	}
	return &claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, errInvalidClaims),
		errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", core.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", core.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", core.ErrExpiredToken, err)
	default:
		return fmt.Errorf("%w: %w", core.ErrMalformedToken, err)
	}
}
