package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/middleware"
	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/paths"
	"github.com/classhub/trustgate/internal/token"
)

// Route forwards requests whose path is Prefix or lies below it to Upstream.
type Route struct {
	Prefix   string `yaml:"prefix"`
	Upstream string `yaml:"upstream"`

	// StripPrefix removes Prefix from the forwarded path.
	StripPrefix bool `yaml:"strip_prefix"`
}

type route struct {
	Route
	proxy *httputil.ReverseProxy
}

// Proxy routes requests to upstream services by longest matching path prefix.
type Proxy struct {
	routes []route
}

func NewProxy(routes []Route) (*Proxy, error) {
	p := &Proxy{}
	seen := make(map[string]struct{})
	for i, rt := range routes {
		if !strings.HasPrefix(rt.Prefix, "/") {
			return nil, fmt.Errorf("route #%d: prefix must start with '/'", i)
		}
		key := strings.TrimSuffix(rt.Prefix, "/")
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("route #%d: duplicate prefix %q", i, rt.Prefix)
		}
		seen[key] = struct{}{}

		target, err := url.Parse(rt.Upstream)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route %q: invalid upstream %q", rt.Prefix, rt.Upstream)
		}
		p.routes = append(p.routes, route{Route: rt, proxy: newReverseProxy(rt, target)})
	}

	// longest prefix first
	slices.SortFunc(p.routes, func(a, b route) int {
		return len(b.Prefix) - len(a.Prefix)
	})
	return p, nil
}

func newReverseProxy(rt Route, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if rt.StripPrefix {
				pr.Out.URL.Path = paths.Trim(pr.In.URL.Path, rt.Prefix)
				pr.Out.URL.RawPath = ""
			}
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				return
			}
			log.Ctx(r.Context()).Error().Err(err).Str("upstream", rt.Upstream).Msg("upstream request failed")
			presenter.Error(w, r, "bad gateway", http.StatusBadGateway)
		},
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range p.routes {
		if paths.Under(r.URL.Path, rt.Prefix) {
			rt.proxy.ServeHTTP(w, r)
			return
		}
	}
	presenter.Error(w, r, "no route for path", http.StatusNotFound)
}

// Handler builds the complete gateway: edge verification in front of the proxy.
// Requests to HealthPath are answered locally.
func Handler(v *token.Verifier, transport token.Transport, public *middleware.PublicPaths, proxy *Proxy) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/", EdgeVerifier(v, transport, public)(proxy))
	return middleware.Chain(mux)
}

const HealthPath = paths.Health
