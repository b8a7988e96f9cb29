package service

import (
	"time"

	"github.com/classhub/trustgate/internal/core"
)

// TokenTypeBearer is the token type announced in login and refresh responses.
const TokenTypeBearer = "Bearer"

type LoginRequest struct {
	Username string
	Password string

	// SourceIP and Device are recorded in the audit log.
	SourceIP string
	Device   string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	// User is a snapshot of the principal the access token was issued for.
	User *core.Principal `json:"user"`

	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`

	// ExpiresIn is the absolute expiry of the access token in Unix seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

type AuthConfig struct {
	// DefaultRole is granted when the directory reports no roles.
	DefaultRole string

	// DirectoryTimeout bounds credential checks. Exceeding it fails the login closed.
	DirectoryTimeout time.Duration

	// RefreshTTL is the lifetime of a refresh token.
	RefreshTTL time.Duration

	// RevokeOnLogout adds the access token to the revocation store on logout.
	RevokeOnLogout bool
}

type ExplainRequest struct {
	Token  string
	Method string
	Path   string
}

// Explanation describes how the configured route rules decide a request.
type Explanation struct {
	Principal   *core.Principal `json:"principal,omitempty"`
	TokenError  string          `json:"token_error,omitempty"`
	MatchedRule string          `json:"matched_rule,omitempty"`
	Allowed     bool            `json:"allowed"`
	Reason      string          `json:"reason"`
}
