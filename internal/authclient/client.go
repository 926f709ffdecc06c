// Package authclient talks to the upstream authentication backend and,
// in demo mode, synthesizes credentials locally when the backend is
// unreachable or rejects the call.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"retensync.io/internal/obs"
	"retensync.io/internal/rbac"
	"retensync.io/internal/session"
)

// Outcome records which path produced the credentials.
type Outcome string

const (
	OutcomeBackend Outcome = "backend"
	OutcomeDemo    Outcome = "demo"
)

// ErrBackendUnavailable is returned outside demo mode when the backend
// cannot serve the request.
var ErrBackendUnavailable = errors.New("authclient: backend unavailable")

const (
	defaultTokenTTL = 7 * 24 * time.Hour
	requestTimeout  = 10 * time.Second
)

// account mirrors the backend user payload: role arrives as boolean
// flags, collapsed into one role via rbac.RoleFromFlags.
type account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	IsHR      bool   `json:"is_hr"`
	IsManager bool   `json:"is_manager"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  account `json:"user"`
}

// Client is the outbound auth collaborator.
type Client struct {
	baseURL    string
	http       *http.Client
	demoMode   bool
	demoSecret []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithDemoMode toggles the local fallback path.
func WithDemoMode(on bool) Option {
	return func(cl *Client) { cl.demoMode = on }
}

// WithTokenTTL overrides the synthesized token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(cl *Client) {
		if ttl > 0 {
			cl.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(cl *Client) {
		if fn != nil {
			cl.now = fn
		}
	}
}

// New builds a client for the backend at baseURL. demoSecret signs
// locally synthesized tokens.
func New(baseURL, demoSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: requestTimeout},
		demoMode:   true,
		demoSecret: []byte(demoSecret),
		tokenTTL:   defaultTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates against the backend; on any failure in demo mode
// it falls back to local synthesis.
func (c *Client) Login(ctx context.Context, email, password string) (session.Record, Outcome, error) {
	return c.authenticate(ctx, "/api/login/", email, password)
}

// Register creates an account upstream; same fallback contract as Login.
func (c *Client) Register(ctx context.Context, email, password string) (session.Record, Outcome, error) {
	return c.authenticate(ctx, "/api/register/", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (session.Record, Outcome, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return session.Record{}, "", errors.New("authclient: email and password are required")
	}

	rec, err := c.post(ctx, path, email, password)
	if err == nil {
		return rec, OutcomeBackend, nil
	}
	if !c.demoMode {
		return session.Record{}, "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	obs.Warn("auth backend unavailable, using demo synthesis", map[string]any{
		"error": err.Error(),
	})
	rec, synthErr := c.synthesize(email)
	if synthErr != nil {
		return session.Record{}, "", synthErr
	}
	return rec, OutcomeDemo, nil
}

// Logout notifies the backend best-effort; local state is the caller's
// responsibility either way.
func (c *Client) Logout(ctx context.Context, token string) error {
	if c.baseURL == "" || token == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/logout/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("authclient: logout returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, email, password string) (session.Record, error) {
	if c.baseURL == "" {
		return session.Record{}, errors.New("no backend configured")
	}
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return session.Record{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return session.Record{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Record{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return session.Record{}, fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return session.Record{}, fmt.Errorf("decode backend response: %w", err)
	}
	if body.Token == "" {
		return session.Record{}, errors.New("backend response missing token")
	}
	return session.Record{
		Token:     body.Token,
		Role:      rbac.RoleFromFlags(body.User.IsAdmin, body.User.IsHR, body.User.IsManager),
		UserID:    body.User.ID,
		Email:     body.User.Email,
		ExpiresAt: c.now().Add(c.tokenTTL),
	}, nil
}

func (c *Client) synthesize(email string) (session.Record, error) {
	role := InferRole(email)
	userID := "demo-" + uuid.NewString()
	token, expiresAt, err := c.mintDemoToken(userID, email, role)
	if err != nil {
		return session.Record{}, err
	}
	return session.Record{
		Token:     token,
		Role:      role,
		UserID:    userID,
		Email:     email,
		ExpiresAt: expiresAt,
	}, nil
}

// InferRole guesses a role from email substrings. A development
// convenience for demo mode, not a production rule.
func InferRole(email string) rbac.Role {
	email = strings.ToLower(email)
	switch {
	case strings.Contains(email, "admin"):
		return rbac.RoleAdmin
	case strings.Contains(email, "hr"):
		return rbac.RoleHR
	case strings.Contains(email, "manager"):
		return rbac.RoleManager
	default:
		return rbac.RoleUser
	}
}
