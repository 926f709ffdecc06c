package rbac

import "strings"

// Role is one of the fixed identity classes governing access.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleHR      Role = "hr"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

var allRoles = []Role{RoleAdmin, RoleHR, RoleManager, RoleUser}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Parse normalizes raw input into a known role.
func Parse(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleHR:
		return RoleHR, true
	case RoleManager:
		return RoleManager, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// Known reports whether the role belongs to the closed set.
func Known(r Role) bool {
	_, ok := Parse(string(r))
	return ok
}

// RoleFromFlags collapses backend boolean role flags into a single role.
// Precedence: admin > hr > manager; everything else is a plain user.
func RoleFromFlags(isAdmin, isHR, isManager bool) Role {
	switch {
	case isAdmin:
		return RoleAdmin
	case isHR:
		return RoleHR
	case isManager:
		return RoleManager
	default:
		return RoleUser
	}
}
