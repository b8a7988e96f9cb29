// Package paths holds the well-known HTTP paths shared by the issuer, the
// gateway and the configuration defaults, plus segment-aware prefix matching.
package paths

import "strings"

const (
	Health  = "/healthz"
	About   = "/about"
	Metrics = "/metrics"
	Docs    = "/docs/"

	AuthParent = "/api/v1/auth/"
	Login      = AuthParent + "login"
	Refresh    = AuthParent + "refresh"
	Logout     = AuthParent + "logout"
	Validate   = AuthParent + "validate"
)

// EdgePublic is the gateway's default allow-list. Logout stays public so an
// expired token can still end its session, as on the issuer.
func EdgePublic() []string {
	return []string{Login, Refresh, Logout, Validate, Health, Docs}
}

// Under reports whether path equals prefix or lies below it on a segment
// boundary: "/api/courses" covers "/api/courses/1" but not "/api/coursesX".
// A trailing slash on prefix is ignored and "/" covers every path.
func Under(path, prefix string) bool {
	base := strings.TrimSuffix(prefix, "/")
	if base == "" {
		return strings.HasPrefix(path, "/")
	}
	return path == base || strings.HasPrefix(path, base+"/")
}

// Trim removes prefix from a path Under it and returns a rooted remainder.
func Trim(path, prefix string) string {
	rest := strings.TrimPrefix(path, strings.TrimSuffix(prefix, "/"))
	return "/" + strings.TrimPrefix(rest, "/")
}
