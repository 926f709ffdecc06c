package guard

import (
	"context"
	"encoding/json"
	"net/http"

	"retensync.io/internal/session"
)

// InfoSource yields the current session for a request.
type InfoSource func(ctx context.Context) session.Info

// DenyHook observes denials (for audit logging).
type DenyHook func(r *http.Request, info session.Info, d Decision)

// Protect wraps next so it only runs when the requirement passes.
// Unauthenticated callers get 401 with a login prompt; everyone else
// who fails gets 403 naming the missing requirement.
func (c *Checker) Protect(next http.Handler, source InfoSource, req Requirement, onDeny DenyHook) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := source(r.Context())
		decision := c.Decide(info, req)
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		if onDeny != nil {
			onDeny(r, info, decision)
		}
		code := http.StatusForbidden
		if decision.Reason == ReasonNotAuthenticated {
			code = http.StatusUnauthorized
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(decision)
	})
}
