package model

import (
	"fmt"
	"strings"
)

// Role is an admin privilege level. Roles are ordered: VIEWER < EDITOR < ADMIN.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

// Roles lists every known role from least to most privileged.
var Roles = []Role{RoleViewer, RoleEditor, RoleAdmin}

// Rank returns the position of r in the privilege order, or -1 for an
// unknown role.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 0
	case RoleEditor:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.Rank() >= 0 }

// AtLeast reports whether r grants at least the privileges of min. Unknown
// roles never satisfy any requirement.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && min.Valid() && r.Rank() >= min.Rank()
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (want one of VIEWER, EDITOR, ADMIN)", s)
	}
	return r, nil
}
