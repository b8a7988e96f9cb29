package token

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/classhub/trustgate/internal/core"
)

const (
	DefaultHeader = "Authorization"
	DefaultScheme = "Bearer"
)

// Transport describes how a bearer token travels on a request.
type Transport struct {
	// Header carrying the token, e.g. "Authorization".
	Header string

	// Scheme prefix, e.g. "Bearer". Empty means the header value is the token.
	Scheme string
}

// DefaultTransport is the "Authorization: Bearer <token>" convention.
var DefaultTransport = Transport{Header: DefaultHeader, Scheme: DefaultScheme}

// Extract returns the raw token from the request.
// A missing header or an empty token yields core.ErrMissingCredential.
func (t Transport) Extract(r *http.Request) (string, error) {
	value := strings.TrimSpace(r.Header.Get(t.header()))
	if value == "" {
		return "", core.ErrMissingCredential
	}
	if t.Scheme == "" {
		return value, nil
	}

	scheme, tok, found := strings.Cut(value, " ")
	if !strings.EqualFold(scheme, t.Scheme) {
		return "", fmt.Errorf("%w: expected %s scheme", core.ErrMalformedToken, t.Scheme)
	}
	tok = strings.TrimSpace(tok)
	if !found || tok == "" {
		return "", core.ErrMissingCredential
	}
	return tok, nil
}

// Set writes the token to the request using this transport.
func (t Transport) Set(r *http.Request, tok string) {
	if t.Scheme == "" {
		r.Header.Set(t.header(), tok)
		return
	}
	r.Header.Set(t.header(), t.Scheme+" "+tok)
}

func (t Transport) header() string {
	if t.Header == "" {
		return DefaultHeader
	}
	return t.Header
}
