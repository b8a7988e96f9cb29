package authz

import (
	"fmt"

	"github.com/classhub/trustgate/internal/core"
)

// assignable lists the roles each role may grant. A nil entry means any role.
var assignable = map[string]core.RoleSet{
	core.RolePrefix + core.RoleAdmin:     nil,
	core.RolePrefix + core.RoleTeacher:   core.NewRoleSet(core.RoleTeacher, core.RoleAssistant, core.RoleStudent),
	core.RolePrefix + core.RoleAssistant: core.NewRoleSet(core.RoleAssistant, core.RoleStudent),
	core.RolePrefix + core.RoleStudent:   core.NewRoleSet(),
}

// AssignableRoles returns the union of roles the actor may grant.
// all is true if the actor may grant any role.
func AssignableRoles(actor core.RoleSet) (roles core.RoleSet, all bool) {
	roles = core.RoleSet{}
	for role := range actor {
		grants, known := assignable[role]
		if !known {
			continue
		}
		if grants == nil {
			return nil, true
		}
		for g := range grants {
			roles[g] = struct{}{}
		}
	}
	return roles, false
}

// CanAssign reports whether an actor holding the given roles may grant (or
// withdraw) role. It returns ErrInsufficientPermissions if not.
func CanAssign(actor core.RoleSet, role string) error {
	canonical, err := core.NormalizeRole(role)
	if err != nil {
		return err
	}
	roles, all := AssignableRoles(actor)
	if all {
		return nil
	}
	if _, ok := roles[canonical]; !ok {
		return fmt.Errorf("%w: %s may not assign %s", core.ErrInsufficientPermissions, actor, canonical)
	}
	return nil
}
