package core

import (
	"context"
	"time"
)

// Identity is what the credential directory knows about an authenticated user.
type Identity struct {
	// Subject is the stable subject identifier used as "sub".
	Subject string

	// Roles reported by the directory, bare or prefixed. May be empty.
	Roles []string
}

// Directory is the credential-verification collaborator.
// Authenticate returns ErrInvalidCredentials or ErrAccountDeleted for rejected
// credentials; any other error is treated as the directory being unavailable.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
}

// RoleStore is the role-assignment collaborator.
type RoleStore interface {
	ListRoles(ctx context.Context, userID string) ([]string, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
}

// RevocationStore holds the IDs of tokens invalidated before their natural expiry.
// Entries expire on their own after the store's configured TTL.
type RevocationStore interface {
	Add(ctx context.Context, tokenID string) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// RefreshRecord is the server-side state bound to an opaque refresh token.
type RefreshRecord struct {
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles"`
	FamilyID  string    `json:"family_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshStore persists refresh records keyed by the hash of the refresh token.
type RefreshStore interface {
	// Save records a new refresh token.
	Save(ctx context.Context, hash string, rec RefreshRecord) error

	// Consume atomically marks the record as used and returns it.
	// It returns ErrInvalidRefreshToken for unknown or expired hashes. A hash
	// that was consumed before yields ErrRefreshReused together with a record
	// carrying at least the FamilyID, so the caller can revoke the family.
	Consume(ctx context.Context, hash string) (*RefreshRecord, error)

	// RevokeFamily invalidates every refresh token of the given family.
	RevokeFamily(ctx context.Context, familyID string) error
}
