package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the platform roles. The zero value means no role.
type Role string

const (
	RoleNone       Role = ""
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Roles lists every assignable role, lowest privilege first.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
}

// ParseRole maps a wire value onto a Role.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return role, nil
	default:
		return RoleNone, fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

func (r Role) level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether r meets the role floor. An admin floor is met by
// admin and superadmin, a superadmin floor only by superadmin, and a user or
// empty floor by any assignable role.
func (r Role) Satisfies(floor Role) bool {
	if !r.Valid() {
		return false
	}
	return r.level() >= floor.level()
}
