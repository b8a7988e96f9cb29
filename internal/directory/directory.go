// Package directory verifies username/password pairs and reports the subject's roles.
package directory

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when a user does not exist so that unknown
// and known usernames take comparable time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("trustgate-dummy-password"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash stored by both directory implementations.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
