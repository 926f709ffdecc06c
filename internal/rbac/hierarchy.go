package rbac

// Hierarchy maps a role to the set of roles it may act on behalf of.
type Hierarchy map[Role][]Role

// DefaultHierarchy: admin reaches everyone, hr and manager reach
// themselves plus plain users, users reach only themselves.
var DefaultHierarchy = Hierarchy{
	RoleAdmin:   {RoleAdmin, RoleHR, RoleManager, RoleUser},
	RoleHR:      {RoleHR, RoleUser},
	RoleManager: {RoleManager, RoleUser},
	RoleUser:    {RoleUser},
}

// CanAccess reports whether current may reach target.
func (h Hierarchy) CanAccess(current, target Role) bool {
	for _, r := range h[current] {
		if r == target {
			return true
		}
	}
	return false
}

// Reachable returns the roles current may act on behalf of.
func (h Hierarchy) Reachable(current Role) []Role {
	reach := h[current]
	out := make([]Role, len(reach))
	copy(out, reach)
	return out
}
