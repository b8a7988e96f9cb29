package middleware

import (
	"net/http"

	"github.com/rs/xid"

	"github.com/classhub/trustgate/internal/core"
)

const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLength = 64

// Correlation propagates the caller's correlation ID or assigns a new one.
// Inbound IDs must match [A-Za-z0-9._-]{1,64}; anything else is replaced.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if !validCorrelationID(id) {
			id = xid.New().String()
		}
		w.Header().Set(CorrelationIDHeader, id)
		r.Header.Set(CorrelationIDHeader, id)

		next.ServeHTTP(w, r.WithContext(core.WithCorrelationID(r.Context(), id)))
	})
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
