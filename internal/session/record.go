package session

import (
	"errors"
	"time"

	"retensync.io/internal/rbac"
)

// ErrNoRecord signals that a tier holds no session record at all.
var ErrNoRecord = errors.New("session: no record")

// Record is the credential bundle for one authenticated session.
// At most one record is current at a time; writes replace it wholesale.
type Record struct {
	Token     string    `json:"token"`
	Role      rbac.Role `json:"role"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Empty reports whether the record carries no credential material.
func (r Record) Empty() bool {
	return r.Token == "" && r.Role == "" && r.UserID == "" && r.Email == "" && r.ExpiresAt.IsZero()
}

// expired reports whether the record's expiry, when known, has passed.
func (r Record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// merge fills r's missing fields from other, preferring r.
func (r Record) merge(other Record) Record {
	if r.Token == "" {
		r.Token = other.Token
	}
	if r.Role == "" {
		r.Role = other.Role
	}
	if r.UserID == "" {
		r.UserID = other.UserID
	}
	if r.Email == "" {
		r.Email = other.Email
	}
	if r.ExpiresAt.IsZero() {
		r.ExpiresAt = other.ExpiresAt
	}
	return r
}

// complete reports whether every field a read cares about is present.
func (r Record) complete() bool {
	return r.Token != "" && r.Role != "" && r.UserID != "" && r.Email != "" && !r.ExpiresAt.IsZero()
}

// Info is the validated view of the current session returned by reads.
type Info struct {
	Record
	// Valid is true when a token and a known role are present and the
	// record has not expired.
	Valid bool `json:"valid"`
	// Source names the tier that supplied the token, for diagnostics.
	Source string `json:"source,omitempty"`
}
