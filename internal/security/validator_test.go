package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"retensync.io/internal/rbac"
	"retensync.io/internal/session"
)

func record(now time.Time, ttl time.Duration) session.Record {
	return session.Record{
		Token:     "tok-abc",
		Role:      rbac.RoleUser,
		UserID:    "u-1",
		Email:     "user@retensync.io",
		ExpiresAt: now.Add(ttl),
	}
}

func TestValidReport(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := session.NewStore(
		[]session.Tier{session.NewMemoryTier("primary")},
		session.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Save(context.Background(), record(now, 2*time.Hour))

	v := NewValidator(store, nil)
	report := v.Validate(context.Background())
	if !report.Valid {
		t.Fatalf("expected valid report, got %+v", report)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", report.Issues)
	}
}

func TestExpiredTokenShortCircuits(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := session.NewStore(
		[]session.Tier{session.NewMemoryTier("primary")},
		session.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Save(context.Background(), record(now, -time.Minute))

	report := NewValidator(store, nil).Validate(context.Background())
	if report.Valid {
		t.Fatal("expired token must yield invalid report")
	}
	if len(report.Issues) != 1 || !strings.Contains(report.Issues[0], "invalid") {
		t.Fatalf("expected single invalidity issue, got %v", report.Issues)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0] != "re-authenticate" {
		t.Fatalf("expected re-authenticate recommendation, got %v", report.Recommendations)
	}
}

func TestNearExpiryIssue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := session.NewStore(
		[]session.Tier{session.NewMemoryTier("primary")},
		session.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Save(context.Background(), record(now, 3*time.Minute))

	report := NewValidator(store, nil).Validate(context.Background())
	if report.Valid {
		t.Fatal("token inside the refresh buffer must produce an issue")
	}
	if len(report.Issues) != 1 || report.Issues[0] != IssueNearExpiration {
		t.Fatalf("expected near-expiration issue, got %v", report.Issues)
	}
}

func TestIdleAndSessionIssuesAggregate(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := &clock
	nowFn := func() time.Time { return *now }

	store, err := session.NewStore(
		[]session.Tier{session.NewMemoryTier("primary")},
		session.WithClock(nowFn),
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Save(context.Background(), record(*now, 72*time.Hour))

	mon := session.NewMonitor(store, session.WithMonitorClock(nowFn))
	mon.Start(context.Background())
	defer mon.Stop()

	// Blow past both limits without touching the monitor.
	*now = now.Add(25 * time.Hour)

	report := NewValidator(store, mon).Validate(context.Background())
	if report.Valid {
		t.Fatal("expected invalid report")
	}
	want := map[string]bool{IssueSessionExceeded: false, IssueIdleTooLong: false}
	for _, issue := range report.Issues {
		if _, ok := want[issue]; ok {
			want[issue] = true
		}
	}
	for issue, seen := range want {
		if !seen {
			t.Fatalf("missing issue %q in %v", issue, report.Issues)
		}
	}
}
