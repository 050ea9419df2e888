package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	// RoleAdmin can manage every user, team and progress entry.
	RoleAdmin Role = "admin"
	// RoleLeader can check past and current days for members of their own team.
	RoleLeader Role = "leader"
	// RoleMember can only check their own current day.
	RoleMember Role = "member"
)

// AllRoles lists every valid role in display order.
var AllRoles = []Role{RoleAdmin, RoleLeader, RoleMember}

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", raw)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLeader, RoleMember:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
