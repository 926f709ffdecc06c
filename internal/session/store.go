package session

import (
	"context"
	"errors"
	"time"

	"retensync.io/internal/obs"
	"retensync.io/internal/rbac"
)

// DefaultRefreshBuffer is how far ahead of expiry a token counts as
// "expiring" for proactive refresh decisions.
const DefaultRefreshBuffer = 5 * time.Minute

// Store writes the session record to every tier and reads it back from
// the first tier that has it. Tier failures are independently
// recoverable: one broken backend degrades redundancy, not the
// operation.
type Store struct {
	tiers []Tier
	now   func() time.Time

	// onExpired fires when a read discovers a hard-expired record,
	// after the store has cleared all tiers.
	onExpired func(context.Context, Record)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithExpiredHook installs a callback invoked on expiry auto-clear.
func WithExpiredHook(fn func(context.Context, Record)) StoreOption {
	return func(s *Store) { s.onExpired = fn }
}

// NewStore builds a store over the given tiers in priority order. The
// first tier is the primary: Save reports its outcome.
func NewStore(tiers []Tier, opts ...StoreOption) (*Store, error) {
	if len(tiers) == 0 {
		return nil, errors.New("session: at least one tier is required")
	}
	s := &Store{tiers: tiers, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save writes rec to every tier. Returns true when the primary tier
// write succeeded; secondary failures are logged and swallowed.
func (s *Store) Save(ctx context.Context, rec Record) bool {
	primaryOK := true
	for i, tier := range s.tiers {
		if err := tier.Write(ctx, rec); err != nil {
			if i == 0 {
				primaryOK = false
			}
			obs.Warn("session tier write failed", map[string]any{
				"tier":  tier.Name(),
				"error": err.Error(),
			})
		}
	}
	return primaryOK
}

// Read assembles the current record from the tiers, preferring earlier
// tiers field by field, and validates it. A hard-expired record is
// cleared from every tier as a side effect and reported invalid.
func (s *Store) Read(ctx context.Context) Info {
	rec, source := s.readMerged(ctx)
	if rec.Empty() {
		return Info{}
	}
	if rec.expired(s.now()) {
		s.Remove(ctx)
		if s.onExpired != nil {
			s.onExpired(ctx, rec)
		}
		return Info{}
	}
	info := Info{Record: rec, Source: source}
	info.Valid = rec.Token != "" && rbac.Known(rec.Role)
	return info
}

// readMerged walks the tiers in priority order, filling missing fields
// from later tiers. No validation, no side effects.
func (s *Store) readMerged(ctx context.Context) (Record, string) {
	var (
		merged Record
		source string
	)
	for _, tier := range s.tiers {
		rec, err := tier.Read(ctx)
		if err != nil {
			if !errors.Is(err, ErrNoRecord) {
				obs.Warn("session tier read failed", map[string]any{
					"tier":  tier.Name(),
					"error": err.Error(),
				})
			}
			continue
		}
		if source == "" && rec.Token != "" {
			source = tier.Name()
		}
		merged = merged.merge(rec)
		if merged.complete() {
			break
		}
	}
	return merged, source
}

// Remove clears every tier unconditionally. Idempotent; never fails.
func (s *Store) Remove(ctx context.Context) {
	for _, tier := range s.tiers {
		if err := tier.Clear(ctx); err != nil {
			obs.Warn("session tier clear failed", map[string]any{
				"tier":  tier.Name(),
				"error": err.Error(),
			})
		}
	}
}

// Update replaces the current record: Remove followed by Save. A role
// change is worth a log line, but it is not a security event.
func (s *Store) Update(ctx context.Context, rec Record) bool {
	prev, _ := s.readMerged(ctx)
	s.Remove(ctx)
	ok := s.Save(ctx, rec)
	if prev.Role != "" && prev.Role != rec.Role {
		obs.Info("session role changed", map[string]any{
			"user_id": rec.UserID,
			"from":    string(prev.Role),
			"to":      string(rec.Role),
		})
	}
	return ok
}

// Expiring reports whether the token is within buffer of its expiry.
// Unknown expiry counts as expiring so callers err toward refresh.
func (s *Store) Expiring(ctx context.Context, buffer time.Duration) bool {
	if buffer <= 0 {
		buffer = DefaultRefreshBuffer
	}
	rec, _ := s.readMerged(ctx)
	if rec.ExpiresAt.IsZero() {
		return true
	}
	return !s.now().Before(rec.ExpiresAt.Add(-buffer))
}

// MinutesRemaining returns the floored, non-negative minutes until
// expiry. ok is false when no expiry is known.
func (s *Store) MinutesRemaining(ctx context.Context) (int, bool) {
	rec, _ := s.readMerged(ctx)
	if rec.ExpiresAt.IsZero() {
		return 0, false
	}
	left := rec.ExpiresAt.Sub(s.now())
	if left < 0 {
		return 0, true
	}
	return int(left / time.Minute), true
}
