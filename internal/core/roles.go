package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// RolePrefix marks every entry of a canonical RoleSet.
const RolePrefix = "ROLE_"

// Well-known roles of the platform.
const (
	RoleAdmin     = "ADMIN"
	RoleTeacher   = "TEACHER"
	RoleAssistant = "ASSISTANT"
	RoleStudent   = "STUDENT"
)

var roleNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// NormalizeRole returns the canonical (prefixed, upper-case) form of a role name.
// "teacher", "TEACHER" and "ROLE_TEACHER" all normalize to "ROLE_TEACHER".
func NormalizeRole(role string) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(role))
	name = strings.TrimPrefix(name, RolePrefix)
	if !roleNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid role name %q", role)
	}
	return RolePrefix + name, nil
}

// RoleSet is the canonical set of roles held by a principal.
// Keys always carry RolePrefix.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from bare or prefixed names.
// It panics on invalid names and is meant for constants and tests, use ParseRoles for input.
func NewRoleSet(roles ...string) RoleSet {
	set, err := ParseRoles(roles)
	if err != nil {
		panic(err)
	}
	return set
}

// ParseRoles normalizes a list of role names into a RoleSet.
func ParseRoles(roles []string) (RoleSet, error) {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		canonical, err := NormalizeRole(r)
		if err != nil {
			return nil, err
		}
		set[canonical] = struct{}{}
	}
	return set, nil
}

// ParseRolesCSV parses a comma-joined role list. Empty items are skipped.
func ParseRolesCSV(csv string) (RoleSet, error) {
	var parts []string
	for _, p := range strings.Split(csv, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts = append(parts, p)
	}
	return ParseRoles(parts)
}

// Has reports whether the set contains the given role (bare or prefixed).
func (r RoleSet) Has(role string) bool {
	canonical, err := NormalizeRole(role)
	if err != nil {
		return false
	}
	_, ok := r[canonical]
	return ok
}

// Intersects reports whether both sets share at least one role.
func (r RoleSet) Intersects(other RoleSet) bool {
	for role := range other {
		if _, ok := r[role]; ok {
			return true
		}
	}
	return false
}

// Canonical returns the sorted, prefixed role names.
func (r RoleSet) Canonical() []string {
	out := make([]string, 0, len(r))
	for role := range r {
		out = append(out, role)
	}
	slices.Sort(out)
	return out
}

// Names returns the sorted role names without RolePrefix.
func (r RoleSet) Names() []string {
	out := r.Canonical()
	for i, role := range out {
		out[i] = strings.TrimPrefix(role, RolePrefix)
	}
	return out
}

// CSV returns the comma-joined role names.
func (r RoleSet) CSV() string {
	return strings.Join(r.Names(), ",")
}

// Equal reports whether both sets contain exactly the same roles.
func (r RoleSet) Equal(other RoleSet) bool {
	if len(r) != len(other) {
		return false
	}
	for role := range r {
		if _, ok := other[role]; !ok {
			return false
		}
	}
	return true
}

func (r RoleSet) String() string {
	return "[" + strings.Join(r.Names(), " ") + "]"
}

// MarshalJSON encodes the set as a sorted array of bare role names.
// This is the canonical wire encoding of the "roles" claim.
func (r RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Names())
}

// UnmarshalJSON accepts either an array of strings or a comma-joined string.
// Any other shape, including null, is rejected.
func (r *RoleSet) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding roles: %w", err)
	}

	var (
		set RoleSet
		err error
	)
	switch v := raw.(type) {
	case string:
		set, err = ParseRolesCSV(v)
	case []any:
		names := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("roles[%d]: expected string, got %T", i, item)
			}
			names = append(names, s)
		}
		set, err = ParseRoles(names)
	default:
		return fmt.Errorf("roles: unsupported shape %T", raw)
	}
	if err != nil {
		return err
	}
	*r = set
	return nil
}
