package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"retensync.io/internal/rbac"
)

func TestLoginAgainstBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode credentials: %v", err)
		}
		if creds["email"] != "lead@corp.example" {
			t.Errorf("unexpected email %q", creds["email"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "backend-token",
			"user": map[string]any{
				"id":         "u-77",
				"email":      "lead@corp.example",
				"is_admin":   false,
				"is_hr":      false,
				"is_manager": true,
			},
		})
	}))
	defer backend.Close()

	c := New(backend.URL, "test-secret")
	rec, outcome, err := c.Login(context.Background(), "lead@corp.example", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if outcome != OutcomeBackend {
		t.Fatalf("expected backend outcome, got %s", outcome)
	}
	if rec.Token != "backend-token" || rec.Role != rbac.RoleManager || rec.UserID != "u-77" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry must be in the future: %v", rec.ExpiresAt)
	}
}

func TestLoginFallsBackToDemoSynthesis(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	c := New(backend.URL, "test-secret")
	rec, outcome, err := c.Login(context.Background(), "admin@x.com", "anything")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if outcome != OutcomeDemo {
		t.Fatalf("expected demo outcome, got %s", outcome)
	}
	if rec.Role != rbac.RoleAdmin {
		t.Fatalf("admin@x.com must infer the admin role, got %s", rec.Role)
	}
	if !strings.HasPrefix(rec.UserID, "demo-") {
		t.Fatalf("demo user IDs carry the demo prefix, got %q", rec.UserID)
	}

	// The synthesized token is a verifiable demo token.
	userID, email, role, err := c.ParseDemoToken(rec.Token)
	if err != nil {
		t.Fatalf("ParseDemoToken: %v", err)
	}
	if userID != rec.UserID || email != "admin@x.com" || role != rbac.RoleAdmin {
		t.Fatalf("demo claims mismatch: %s %s %s", userID, email, role)
	}
}

func TestLoginWithoutDemoModeSurfacesError(t *testing.T) {
	c := New("http://127.0.0.1:1", "test-secret", WithDemoMode(false),
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	_, _, err := c.Login(context.Background(), "user@x.com", "pw")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestInferRolePrecedence(t *testing.T) {
	cases := map[string]rbac.Role{
		"admin@x.com":        rbac.RoleAdmin,
		"hr-admin@x.com":     rbac.RoleAdmin,
		"hr.lead@x.com":      rbac.RoleHR,
		"manager@x.com":      rbac.RoleManager,
		"jane.doe@x.com":     rbac.RoleUser,
		"ADMIN@corp.example": rbac.RoleAdmin,
	}
	for email, want := range cases {
		if got := InferRole(email); got != want {
			t.Fatalf("InferRole(%q): got %s, want %s", email, got, want)
		}
	}
}

func TestParseDemoTokenRejectsTampering(t *testing.T) {
	c := New("", "test-secret")
	rec, err := c.synthesize("hr@x.com")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	other := New("", "different-secret")
	if _, _, _, err := other.ParseDemoToken(rec.Token); !errors.Is(err, ErrInvalidDemoToken) {
		t.Fatalf("expected rejection under a different secret, got %v", err)
	}
	if _, _, _, err := c.ParseDemoToken(rec.Token + "x"); !errors.Is(err, ErrInvalidDemoToken) {
		t.Fatalf("expected rejection of a mangled token, got %v", err)
	}
}

func TestExpiredDemoTokenRejected(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	c := New("", "test-secret", WithClock(func() time.Time { return past }), WithTokenTTL(time.Hour))
	rec, err := c.synthesize("manager@x.com")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	verify := New("", "test-secret")
	if _, _, _, err := verify.ParseDemoToken(rec.Token); !errors.Is(err, ErrInvalidDemoToken) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}
