package rbac

import "strings"

// Permission keys follow the resource:action convention.
const (
	PermUserRead       = "user:read"
	PermUserWrite      = "user:write"
	PermUserDelete     = "user:delete"
	PermTeamRead       = "team:read"
	PermTeamWrite      = "team:write"
	PermFeedbackRead   = "feedback:read"
	PermFeedbackWrite  = "feedback:write"
	PermGoalsRead      = "goals:read"
	PermGoalsWrite     = "goals:write"
	PermAnalyticsRead  = "analytics:read"
	PermAnalyticsWrite = "analytics:write"
	PermSystemRead     = "system:read"
	PermSystemWrite    = "system:write"
	PermAuditRead      = "audit:read"
)

// Table maps a permission key to the roles allowed to hold it.
// Contents are fixed at definition time and never mutated.
type Table map[string][]Role

// DefaultTable is the product permission catalog.
var DefaultTable = Table{
	PermUserRead:       {RoleAdmin, RoleHR, RoleManager, RoleUser},
	PermUserWrite:      {RoleAdmin, RoleHR},
	PermUserDelete:     {RoleAdmin},
	PermTeamRead:       {RoleAdmin, RoleHR, RoleManager},
	PermTeamWrite:      {RoleAdmin, RoleHR, RoleManager},
	PermFeedbackRead:   {RoleAdmin, RoleHR, RoleManager, RoleUser},
	PermFeedbackWrite:  {RoleAdmin, RoleHR, RoleManager, RoleUser},
	PermGoalsRead:      {RoleAdmin, RoleHR, RoleManager, RoleUser},
	PermGoalsWrite:     {RoleAdmin, RoleHR, RoleManager},
	PermAnalyticsRead:  {RoleAdmin, RoleHR, RoleManager},
	PermAnalyticsWrite: {RoleAdmin, RoleHR},
	PermSystemRead:     {RoleAdmin},
	PermSystemWrite:    {RoleAdmin},
	PermAuditRead:      {RoleAdmin, RoleHR},
}

// Allows reports whether role may hold the named permission.
// Unknown permissions and unknown roles are always denied.
func (t Table) Allows(permission string, role Role) bool {
	allowed, ok := t[strings.TrimSpace(permission)]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Permissions lists every permission key role holds, in no particular order.
func (t Table) Permissions(role Role) []string {
	var out []string
	for perm, allowed := range t {
		for _, r := range allowed {
			if r == role {
				out = append(out, perm)
				break
			}
		}
	}
	return out
}
