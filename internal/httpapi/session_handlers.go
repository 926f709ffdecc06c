package httpapi

import (
	"context"
	"net/http"

	"retensync.io/internal/audit"
	"retensync.io/internal/guard"
	"retensync.io/internal/rbac"
	"retensync.io/internal/session"
)

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	info, _ := SessionFromContext(r.Context())
	report := a.validator.Validate(r.Context())

	payload := map[string]any{
		"session":    info,
		"validation": report,
	}
	if mins, ok := a.store.MinutesRemaining(r.Context()); ok {
		payload["minutes_remaining"] = mins
	}
	payload["expiring"] = a.store.Expiring(r.Context(), 0)
	if a.monitor != nil && a.monitor.Running() {
		payload["session_minutes"] = int(a.monitor.SessionElapsed().Minutes())
		payload["idle_minutes"] = int(a.monitor.IdleElapsed().Minutes())
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.monitor != nil {
		a.monitor.Touch()
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAccessCheck answers "would this session pass this guard"
// without enforcing anything.
func (a *API) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	info, _ := SessionFromContext(r.Context())
	req := guard.Requirement{}
	if perm := r.URL.Query().Get("permission"); perm != "" {
		req.Permissions = []string{perm}
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, ok := rbac.Parse(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		req.Role = role
	}
	if len(req.Permissions) == 0 && req.Role == "" {
		writeError(w, r, http.StatusBadRequest, "permission or role is required")
		return
	}

	writeJSON(w, http.StatusOK, a.checker.Decide(info, req))
}

// protectedEvents wraps the audit query with an audit:read guard; every
// denial is itself recorded.
func (a *API) protectedEvents() http.Handler {
	return a.checker.Protect(
		http.HandlerFunc(a.handleSecurityEvents),
		func(ctx context.Context) session.Info {
			info, _ := SessionFromContext(ctx)
			return info
		},
		guard.Requirement{Permissions: []string{rbac.PermAuditRead}},
		func(r *http.Request, info session.Info, d guard.Decision) {
			a.recorder.Log(r.Context(), audit.Event{
				Type:      audit.EventPermissionDenied,
				UserID:    info.UserID,
				Role:      info.Role,
				Details:   "denied access to security events: " + string(d.Reason),
				UserAgent: r.UserAgent(),
			})
		},
	)
}

func (a *API) handleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	var eventType audit.EventType
	if raw := r.URL.Query().Get("type"); raw != "" {
		switch audit.EventType(raw) {
		case audit.EventLogin, audit.EventLogout, audit.EventPermissionDenied,
			audit.EventTokenExpired, audit.EventSuspiciousActivity:
			eventType = audit.EventType(raw)
		default:
			writeError(w, r, http.StatusBadRequest, "unknown event type")
			return
		}
	}
	events := a.recorder.Recent(eventType)
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}
