// Package apiclient wraps outbound requests with the session token and
// the fixed security headers, refusing locally when the security
// validator reports the session invalid.
package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"retensync.io/internal/audit"
	"retensync.io/internal/security"
	"retensync.io/internal/session"
)

// ErrRefused is returned when validation fails before any network I/O.
var ErrRefused = errors.New("apiclient: request refused, session invalid")

// Client decorates an http.Client with session-aware checks.
type Client struct {
	http      *http.Client
	store     *session.Store
	validator *security.Validator
	recorder  *audit.Recorder
}

// New builds the wrapper. recorder may be nil to skip audit events.
func New(store *session.Store, validator *security.Validator, recorder *audit.Recorder, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		http:      httpClient,
		store:     store,
		validator: validator,
		recorder:  recorder,
	}
}

// Do validates the session, annotates the request, and forwards it.
// An invalid session never reaches the network: the call fails with
// ErrRefused and a suspicious_activity event is recorded.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	report := c.validator.Validate(req.Context())
	if !report.Valid {
		info := c.store.Read(req.Context())
		if c.recorder != nil {
			c.recorder.Log(req.Context(), audit.Event{
				Type:    audit.EventSuspiciousActivity,
				UserID:  info.UserID,
				Role:    info.Role,
				Details: fmt.Sprintf("refused %s %s: %s", req.Method, req.URL.Path, strings.Join(report.Issues, "; ")),
			})
		}
		return nil, fmt.Errorf("%w: %s", ErrRefused, strings.Join(report.Issues, "; "))
	}

	annotate(req)
	if info := c.store.Read(req.Context()); info.Token != "" {
		req.Header.Set("Authorization", "Token "+info.Token)
	}
	return c.http.Do(req)
}

// annotate applies the fixed security headers every outbound request
// carries.
func annotate(req *http.Request) {
	req.Header.Set("X-Content-Type-Options", "nosniff")
	req.Header.Set("X-Frame-Options", "DENY")
	req.Header.Set("X-XSS-Protection", "0")
	req.Header.Set("Referrer-Policy", "no-referrer")
	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}
