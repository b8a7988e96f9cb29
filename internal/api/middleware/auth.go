package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/metrics"
	"github.com/classhub/trustgate/internal/token"
)

// PublicPaths is an allow-list of paths reachable without a credential.
// Entries ending in "/" match as prefixes, all others match exactly.
type PublicPaths struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewPublicPaths(paths ...string) *PublicPaths {
	p := &PublicPaths{exact: make(map[string]struct{})}
	for _, path := range paths {
		if strings.HasSuffix(path, "/") {
			p.prefixes = append(p.prefixes, path)
		} else {
			p.exact[path] = struct{}{}
		}
	}
	return p
}

func (p *PublicPaths) Match(path string) bool {
	if p == nil {
		return false
	}
	if _, ok := p.exact[path]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Authenticate re-verifies the bearer token of every request with the
// service's own verifier. Requests to non-public paths without a valid token
// are rejected with 401. Public paths proceed anonymously, but a valid token
// still yields a principal.
func Authenticate(v *token.Verifier, transport token.Transport, public *PublicPaths) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, err := transport.Extract(r)
			var principal *core.Principal
			if err == nil {
				principal, err = v.Verify(ctx, raw)
			}

			if err != nil {
				if public.Match(r.URL.Path) {
					metrics.Verifications.WithLabelValues("service", "anonymous").Inc()
					next.ServeHTTP(w, r)
					return
				}
				metrics.Verifications.WithLabelValues("service", metrics.Result(err)).Inc()
				log.Ctx(ctx).Warn().Err(err).Msg("request rejected by verifier")
				presenter.Err(w, r, err)
				return
			}

			metrics.Verifications.WithLabelValues("service", "ok").Inc()
			log.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("sub", principal.Subject)
			})
			next.ServeHTTP(w, r.WithContext(core.WithPrincipal(ctx, principal)))
		})
	}
}

// Authorize evaluates policy against the request principal: 401 without a
// principal, 403 if the policy denies.
func Authorize(policy authz.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, _ := core.PrincipalFrom(ctx)

			err := authz.Check(ctx, policy, authz.Request{
				Principal: principal,
				Method:    r.Method,
				Path:      r.URL.Path,
				PathValue: r.PathValue,
			})
			metrics.Authorizations.WithLabelValues(metrics.Result(err)).Inc()
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("request rejected by authorization")
				presenter.Err(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnforceRules applies configured route rules to authenticated requests.
// Anonymous requests reaching it are on public paths and pass through.
func EnforceRules(rules *authz.RuleTable) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rules.Len() == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := core.PrincipalFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			err := authz.Check(r.Context(), rules, authz.Request{
				Principal: principal,
				Method:    r.Method,
				Path:      r.URL.Path,
			})
			if err != nil {
				metrics.Authorizations.WithLabelValues(metrics.Result(err)).Inc()
				log.Ctx(r.Context()).Warn().Err(err).Msg("request rejected by route rule")
				presenter.Err(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
