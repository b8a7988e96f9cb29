// Package gateway is the edge of the trust fabric: it verifies bearer tokens
// before any request is routed to a downstream service.
package gateway

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/middleware"
	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/metrics"
	"github.com/classhub/trustgate/internal/token"
)

// Identity headers injected for downstream services. They are informational:
// services must still re-verify the forwarded bearer token.
const (
	HeaderSubject  = "X-Auth-Subject"
	HeaderUsername = "X-Auth-Username"
	HeaderRoles    = "X-Auth-Roles"
)

var identityHeaders = []string{HeaderSubject, HeaderUsername, HeaderRoles}

// EdgeVerifier rejects requests to non-public paths that lack a valid token
// with 401, before anything is forwarded. Client-supplied identity headers
// are always removed; on success they are rewritten from the verified claims.
func EdgeVerifier(v *token.Verifier, transport token.Transport, public *middleware.PublicPaths) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range identityHeaders {
				r.Header.Del(h)
			}

			if public.Match(r.URL.Path) {
				metrics.Verifications.WithLabelValues("gateway", "public").Inc()
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			raw, err := transport.Extract(r)
			if err != nil {
				reject(w, r, err)
				return
			}
			p, err := v.Verify(ctx, raw)
			if err != nil {
				reject(w, r, err)
				return
			}

			metrics.Verifications.WithLabelValues("gateway", "ok").Inc()
			log.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("sub", p.Subject)
			})

			r.Header.Set(HeaderSubject, p.Subject)
			r.Header.Set(HeaderUsername, p.Subject)
			r.Header.Set(HeaderRoles, p.Roles.CSV())
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	metrics.Verifications.WithLabelValues("gateway", metrics.Result(err)).Inc()
	log.Ctx(r.Context()).Warn().Err(err).Msg("request rejected at edge")
	presenter.Err(w, r, err)
}
