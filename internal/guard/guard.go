// Package guard turns session state plus static RBAC tables into
// render/deny decisions with structured denial reasons.
package guard

import (
	"fmt"

	"retensync.io/internal/rbac"
	"retensync.io/internal/session"
)

// Reason classifies why access was denied.
type Reason string

const (
	ReasonNotAuthenticated  Reason = "not_authenticated"
	ReasonMissingPermission Reason = "missing_permission"
	ReasonMissingRole       Reason = "missing_role"
)

// Requirement declares what protected content demands. Permissions and
// Role may be combined; RequireAll switches the permission list from
// any-of to all-of.
type Requirement struct {
	Permissions []string
	Role        rbac.Role
	RequireAll  bool
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	// Missing names the unmet requirement for user-facing messages.
	Missing string `json:"missing,omitempty"`
	Message string `json:"message,omitempty"`
}

// Checker bundles the static tables consulted on every decision.
type Checker struct {
	table rbac.Table
	hier  rbac.Hierarchy
}

// NewChecker builds a checker; nil arguments fall back to the defaults.
func NewChecker(table rbac.Table, hier rbac.Hierarchy) *Checker {
	if table == nil {
		table = rbac.DefaultTable
	}
	if hier == nil {
		hier = rbac.DefaultHierarchy
	}
	return &Checker{table: table, hier: hier}
}

// HasPermission reports whether the session's role holds the permission.
func (c *Checker) HasPermission(info session.Info, permission string) bool {
	return info.Valid && c.table.Allows(permission, info.Role)
}

// CanAccessRole reports whether the session's role reaches target.
func (c *Checker) CanAccessRole(info session.Info, target rbac.Role) bool {
	return info.Valid && c.hier.CanAccess(info.Role, target)
}

// Decide evaluates the requirement against the current session. The
// three denial reasons each carry a distinct user-facing message.
func (c *Checker) Decide(info session.Info, req Requirement) Decision {
	if !info.Valid {
		return Decision{
			Reason:  ReasonNotAuthenticated,
			Message: "Please log in to continue.",
		}
	}

	if len(req.Permissions) > 0 {
		if missing, ok := c.checkPermissions(info.Role, req.Permissions, req.RequireAll); !ok {
			return Decision{
				Reason:  ReasonMissingPermission,
				Missing: missing,
				Message: fmt.Sprintf("Access denied: missing permission %q.", missing),
			}
		}
	}
	if req.Role != "" && !c.hier.CanAccess(info.Role, req.Role) {
		return Decision{
			Reason:  ReasonMissingRole,
			Missing: string(req.Role),
			Message: fmt.Sprintf("Access denied: requires role %q.", req.Role),
		}
	}
	return Decision{Allowed: true}
}

// checkPermissions returns the first unmet permission. With requireAll
// unset, any single granted permission satisfies the list.
func (c *Checker) checkPermissions(role rbac.Role, perms []string, requireAll bool) (string, bool) {
	if requireAll {
		for _, p := range perms {
			if !c.table.Allows(p, role) {
				return p, false
			}
		}
		return "", true
	}
	for _, p := range perms {
		if c.table.Allows(p, role) {
			return "", true
		}
	}
	return perms[0], false
}
