// Package refresh implements opaque, server-bound, single-use refresh tokens.
//
// A refresh token is 32 random bytes, hex encoded. Only its SHA-256 hash is
// stored, bound to the subject, roles and expiry. Every successful exchange
// consumes the token and issues a new one in the same family; presenting a
// consumed token again revokes the whole family.
package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// Generate returns a new high-entropy refresh token.
func Generate() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns the storage key for a refresh token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
