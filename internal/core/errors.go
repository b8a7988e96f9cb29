package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedToken          = errors.New("malformed token")
	ErrExpiredToken            = errors.New("token expired")
	ErrInvalidSignature        = errors.New("invalid token signature")
	ErrRevokedToken            = errors.New("token revoked")
	ErrMissingCredential       = errors.New("missing credential")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountDeleted          = errors.New("account deleted")
	ErrInsufficientRole        = errors.New("insufficient role")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrUpstreamUnavailable     = errors.New("upstream unavailable")
	ErrInvalidRefreshToken     = errors.New("invalid refresh token")
	ErrNotFound                = errors.New("not found")
	ErrBadRequest              = errors.New("bad request")
)

// StatusCode maps an error of the taxonomy above to the HTTP status the caller sees.
// 401 is reserved for credential problems, 403 for authenticated-but-forbidden.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrRevokedToken),
		errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDeleted),
		errors.Is(err, ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientRole),
		errors.Is(err, ErrInsufficientPermissions):
		return http.StatusForbidden
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to a caller for err.
// Credential failures collapse into one generic message so the response
// never tells an attacker whether the account exists or was deleted.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDeleted):
		return "invalid username or password"
	case errors.Is(err, ErrMalformedToken):
		return ErrMalformedToken.Error()
	case errors.Is(err, ErrExpiredToken):
		return ErrExpiredToken.Error()
	case errors.Is(err, ErrInvalidSignature):
		return ErrInvalidSignature.Error()
	case errors.Is(err, ErrRevokedToken):
		return ErrRevokedToken.Error()
	case errors.Is(err, ErrMissingCredential):
		return ErrMissingCredential.Error()
	case errors.Is(err, ErrInvalidRefreshToken):
		return ErrInvalidRefreshToken.Error()
	case errors.Is(err, ErrInsufficientRole):
		return ErrInsufficientRole.Error()
	case errors.Is(err, ErrInsufficientPermissions):
		return ErrInsufficientPermissions.Error()
	case errors.Is(err, ErrUpstreamUnavailable):
		return "service temporarily unavailable"
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrBadRequest):
		return err.Error()
	default:
		return "internal server error"
	}
}

// ErrRefreshReused signals that a consumed refresh token was presented again.
var ErrRefreshReused = fmt.Errorf("refresh token reused: %w", ErrInvalidRefreshToken)
