package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"retensync.io/internal/audit"
	"retensync.io/internal/authclient"
	"retensync.io/internal/obs"
	"retensync.io/internal/session"
)

const tokenTTL = 7 * 24 * time.Hour

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Outcome   string    `json:"outcome,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	a.handleAuthenticate(w, r, audit.EventLogin, a.auth.Login)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	a.handleAuthenticate(w, r, audit.EventLogin, a.auth.Register)
}

func (a *API) handleAuthenticate(w http.ResponseWriter, r *http.Request, eventType audit.EventType, authn func(ctx context.Context, email, password string) (session.Record, authclient.Outcome, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, outcome, err := authn(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.CountLogin("failed")
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}

	if !a.store.Update(r.Context(), rec) {
		writeError(w, r, http.StatusInternalServerError, "session could not be persisted")
		return
	}
	if a.monitor != nil {
		a.monitor.Stop()
		// The monitor outlives the request that opened the session.
		a.monitor.Start(context.Background())
	}

	obs.CountLogin(string(outcome))
	a.recorder.Log(r.Context(), audit.Event{
		Type:      eventType,
		UserID:    rec.UserID,
		Role:      rec.Role,
		Details:   fmt.Sprintf("%s via %s", eventType, outcome),
		UserAgent: r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     rec.Token,
		Role:      string(rec.Role),
		UserID:    rec.UserID,
		Email:     rec.Email,
		ExpiresAt: rec.ExpiresAt,
		Outcome:   string(outcome),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	info, _ := SessionFromContext(r.Context())
	if info.Token != "" {
		if err := a.auth.Logout(r.Context(), info.Token); err != nil {
			obs.Warn("backend logout failed", map[string]any{"error": err.Error()})
		}
	}

	a.store.Remove(r.Context())
	if a.monitor != nil {
		a.monitor.Stop()
	}
	a.recorder.Log(r.Context(), audit.Event{
		Type:      audit.EventLogout,
		UserID:    info.UserID,
		Role:      info.Role,
		Details:   "user logout",
		UserAgent: r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	info, ok := SessionFromContext(r.Context())
	if !ok || !info.Valid {
		writeError(w, r, http.StatusUnauthorized, "no session to refresh")
		return
	}

	rec := info.Record
	rec.ExpiresAt = a.now().Add(tokenTTL)
	if !a.store.Update(r.Context(), rec) {
		writeError(w, r, http.StatusInternalServerError, "session could not be persisted")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     rec.Token,
		Role:      string(rec.Role),
		UserID:    rec.UserID,
		Email:     rec.Email,
		ExpiresAt: rec.ExpiresAt,
	})
}
