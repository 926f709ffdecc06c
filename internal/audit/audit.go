// Package audit keeps a bounded, process-local trail of security
// events. Events are mirrored as JSON log lines and forwarded to an
// optional HTTP sink best-effort; the buffer itself never survives a
// restart.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"retensync.io/internal/ids"
	"retensync.io/internal/obs"
	"retensync.io/internal/rbac"
)

// EventType enumerates the security-relevant occurrences we track.
type EventType string

const (
	EventLogin              EventType = "login"
	EventLogout             EventType = "logout"
	EventPermissionDenied   EventType = "permission_denied"
	EventTokenExpired       EventType = "token_expired"
	EventSuspiciousActivity EventType = "suspicious_activity"
)

// Event is one audit entry. Immutable once appended.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	Role      rbac.Role `json:"role,omitempty"`
	Details   string    `json:"details,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

const (
	defaultCap    = 1000
	defaultWindow = 24 * time.Hour
	forwardWait   = 3 * time.Second
)

// Recorder is the bounded in-memory event buffer.
type Recorder struct {
	mu     sync.Mutex
	events []Event

	cap       int
	window    time.Duration
	now       func() time.Time
	sinkURL   string
	client    *http.Client
	userAgent string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithCapacity overrides the buffer cap.
func WithCapacity(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.cap = n
		}
	}
}

// WithSink enables best-effort forwarding to the given endpoint.
func WithSink(url string) RecorderOption {
	return func(r *Recorder) { r.sinkURL = url }
}

// WithHTTPClient overrides the forwarding client.
func WithHTTPClient(c *http.Client) RecorderOption {
	return func(r *Recorder) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRecorderClock overrides the time source.
func WithRecorderClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithUserAgent sets the default user agent stamped on events that do
// not carry their own.
func WithUserAgent(ua string) RecorderOption {
	return func(r *Recorder) { r.userAgent = ua }
}

// NewRecorder builds an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		cap:    defaultCap,
		window: defaultWindow,
		now:    time.Now,
		client: &http.Client{Timeout: forwardWait},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Log stamps the event with time, ID, and user agent, appends it,
// evicts the oldest entries past the cap, mirrors a JSON line, bumps
// metrics, and forwards to the sink. Forwarding failures are warned
// about and otherwise swallowed.
func (r *Recorder) Log(ctx context.Context, event Event) {
	event.ID = ids.Event()
	event.Timestamp = r.now().UTC()
	if event.UserAgent == "" {
		event.UserAgent = r.userAgent
	}

	r.mu.Lock()
	r.events = append(r.events, event)
	if excess := len(r.events) - r.cap; excess > 0 {
		r.events = append(r.events[:0:0], r.events[excess:]...)
	}
	r.mu.Unlock()

	obs.CountSecurityEvent(string(event.Type))
	obs.Emit("info", "security_event", map[string]any{
		"event_id": event.ID,
		"type":     string(event.Type),
		"user_id":  event.UserID,
		"role":     string(event.Role),
		"details":  event.Details,
	})

	r.forward(ctx, event)
}

// Recent returns events from the recall window in insertion order,
// optionally filtered by type (empty matches all).
func (r *Recorder) Recent(eventType EventType) []Event {
	cutoff := r.now().UTC().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, ev := range r.events {
		if ev.Timestamp.Before(cutoff) {
			continue
		}
		if eventType != "" && ev.Type != eventType {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Len reports the number of buffered events, ignoring the window.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Recorder) forward(ctx context.Context, event Event) {
	if r.sinkURL == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		obs.Warn("audit forward marshal failed", map[string]any{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(ctx, forwardWait)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.sinkURL, bytes.NewReader(body))
	if err != nil {
		obs.Warn("audit forward request failed", map[string]any{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		obs.Warn("audit forward failed", map[string]any{"error": err.Error()})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		obs.Warn("audit sink rejected event", map[string]any{"status": resp.StatusCode})
	}
}
