package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum HMAC key size accepted (256 bit).
const MinSecretLength = 32

var ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

// Keyring is the signing key registry shared by every participant.
// New tokens are always signed with the active key; the previous keys are
// kept for verification only so a secret can be rotated without a flag day.
// A Keyring is immutable once built.
type Keyring struct {
	activeID string
	keys     map[string][]byte
}

// NewKeyring validates the given secrets and builds a keyring.
// A missing or short secret is an error; callers must refuse to start on it.
func NewKeyring(activeID string, active Secret, previous map[string]Secret) (*Keyring, error) {
	if activeID == "" {
		return nil, errors.New("active key id must not be empty")
	}
	if len(active) < MinSecretLength {
		return nil, fmt.Errorf("key %q: %w", activeID, ErrWeakSecret)
	}

	keys := map[string][]byte{
		activeID: active.Bytes(),
	}
	for id, secret := range previous {
		if id == activeID {
			return nil, fmt.Errorf("key %q is both active and previous", id)
		}
		if len(secret) < MinSecretLength {
			return nil, fmt.Errorf("key %q: %w", id, ErrWeakSecret)
		}
		keys[id] = secret.Bytes()
	}

	return &Keyring{
		activeID: activeID,
		keys:     keys,
	}, nil
}

// ActiveID returns the ID of the key used for signing.
func (k *Keyring) ActiveID() string {
	return k.activeID
}

func (k *Keyring) signingKey() (string, []byte) {
	return k.activeID, k.keys[k.activeID]
}

// keyFunc resolves the verification key from the "kid" header.
// Tokens without a kid are checked against the active key.
func (k *Keyring) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		kid = k.activeID
	}
	key, ok := k.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}
