// Package metrics holds the Prometheus collectors of the trust fabric.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/classhub/trustgate/internal/core"
)

var (
	// Verifications counts verification outcomes per participant
	// ("gateway", "service") and result ("ok", "missing", "expired", ...).
	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustgate_verifications_total",
			Help: "Bearer token verifications by verifier and result",
		},
		[]string{"verifier", "result"},
	)

	// Logins counts login attempts by result.
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustgate_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// Refreshes counts refresh-token exchanges by result.
	Refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustgate_refreshes_total",
			Help: "Refresh token exchanges by result",
		},
		[]string{"result"},
	)

	// Revocations counts tokens added to the revocation store.
	Revocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trustgate_revocations_total",
			Help: "Access tokens added to the revocation store",
		},
	)

	// RevocationFailOpen counts lookups that fell back to signature-only validation.
	RevocationFailOpen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trustgate_revocation_fail_open_total",
			Help: "Revocation lookups that failed and were treated as not revoked",
		},
	)

	// Authorizations counts decisions of the authorization decision point.
	Authorizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustgate_authorizations_total",
			Help: "Authorization decisions by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		Verifications,
		Logins,
		Refreshes,
		Revocations,
		RevocationFailOpen,
		Authorizations,
	)
}

// Result returns the label value describing a verification or authorization outcome.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrMissingCredential):
		return "missing"
	case errors.Is(err, core.ErrExpiredToken):
		return "expired"
	case errors.Is(err, core.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, core.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, core.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, core.ErrInsufficientRole), errors.Is(err, core.ErrInsufficientPermissions):
		return "denied"
	default:
		return "error"
	}
}
