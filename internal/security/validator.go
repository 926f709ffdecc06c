// Package security composes token state, session age, and idle time
// into a single validation verdict. The validator holds no state of its
// own and has no side effects; callers decide what a negative verdict
// means for them.
package security

import (
	"context"
	"fmt"
	"time"

	"retensync.io/internal/session"
)

// Issue strings surfaced in reports.
const (
	IssueTokenInvalid    = "token is invalid or missing"
	IssueNearExpiration  = "token is near expiration"
	IssueSessionExceeded = "session exceeded maximum duration"
	IssueIdleTooLong     = "session idle for too long"
)

// Report is the aggregated verdict.
type Report struct {
	Valid           bool     `json:"valid"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Validator reads the token store and session monitor. The monitor is
// optional; without one only token checks apply.
type Validator struct {
	store         *session.Store
	monitor       *session.Monitor
	refreshBuffer time.Duration
	idleLimit     time.Duration
	sessionLimit  time.Duration
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithRefreshBuffer overrides the near-expiry window.
func WithRefreshBuffer(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		if d > 0 {
			v.refreshBuffer = d
		}
	}
}

// WithTimeLimits overrides the idle and session limits checked against
// the monitor.
func WithTimeLimits(idle, sess time.Duration) ValidatorOption {
	return func(v *Validator) {
		if idle > 0 {
			v.idleLimit = idle
		}
		if sess > 0 {
			v.sessionLimit = sess
		}
	}
}

// NewValidator builds a validator over the given store and monitor.
func NewValidator(store *session.Store, monitor *session.Monitor, opts ...ValidatorOption) *Validator {
	v := &Validator{
		store:         store,
		monitor:       monitor,
		refreshBuffer: session.DefaultRefreshBuffer,
		idleLimit:     session.IdleLimit,
		sessionLimit:  session.SessionLimit,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate produces the current verdict. An invalid or missing token
// short-circuits; otherwise every triggered issue is aggregated and the
// report is valid only when no issue fired.
func (v *Validator) Validate(ctx context.Context) Report {
	info := v.store.Read(ctx)
	if !info.Valid {
		return Report{
			Issues:          []string{IssueTokenInvalid},
			Recommendations: []string{"re-authenticate"},
		}
	}

	var report Report
	if v.store.Expiring(ctx, v.refreshBuffer) {
		report.Issues = append(report.Issues, IssueNearExpiration)
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("refresh the token within %d minutes", int(v.refreshBuffer/time.Minute)))
	}
	if v.monitor != nil && v.monitor.Running() {
		if v.monitor.SessionElapsed() > v.sessionLimit {
			report.Issues = append(report.Issues, IssueSessionExceeded)
			report.Recommendations = append(report.Recommendations, "re-authenticate")
		}
		if v.monitor.IdleElapsed() > v.idleLimit {
			report.Issues = append(report.Issues, IssueIdleTooLong)
			report.Recommendations = append(report.Recommendations, "confirm presence or re-authenticate")
		}
	}
	report.Valid = len(report.Issues) == 0
	return report
}
