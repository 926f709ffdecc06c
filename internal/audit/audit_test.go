package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"retensync.io/internal/rbac"
)

func TestCapEvictsOldestFirst(t *testing.T) {
	rec := NewRecorder()
	for i := 0; i <= defaultCap; i++ {
		rec.Log(context.Background(), Event{
			Type:    EventLogin,
			Details: fmt.Sprintf("login #%d", i),
		})
	}

	if got := rec.Len(); got != defaultCap {
		t.Fatalf("expected %d buffered events, got %d", defaultCap, got)
	}
	events := rec.Recent("")
	if len(events) != defaultCap {
		t.Fatalf("expected %d recent events, got %d", defaultCap, len(events))
	}
	// The very first entry was evicted; order stays chronological.
	if events[0].Details != "login #1" {
		t.Fatalf("oldest surviving event should be #1, got %q", events[0].Details)
	}
	if events[len(events)-1].Details != fmt.Sprintf("login #%d", defaultCap) {
		t.Fatalf("newest event mismatch: %q", events[len(events)-1].Details)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Fatal("events out of chronological order")
		}
	}
}

func TestRecentFiltersTypeAndWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(WithRecorderClock(func() time.Time { return now }))

	// An event from two days ago falls outside the recall window.
	old := now.Add(-48 * time.Hour)
	rec.now = func() time.Time { return old }
	rec.Log(context.Background(), Event{Type: EventLogin, UserID: "u-old"})
	rec.now = func() time.Time { return now }

	rec.Log(context.Background(), Event{Type: EventLogin, UserID: "u-1"})
	rec.Log(context.Background(), Event{Type: EventLogout, UserID: "u-1"})
	rec.Log(context.Background(), Event{Type: EventPermissionDenied, UserID: "u-2", Role: rbac.RoleUser})

	all := rec.Recent("")
	if len(all) != 3 {
		t.Fatalf("expected 3 events inside the window, got %d", len(all))
	}
	logins := rec.Recent(EventLogin)
	if len(logins) != 1 || logins[0].UserID != "u-1" {
		t.Fatalf("unexpected login filter result: %+v", logins)
	}
	if denied := rec.Recent(EventPermissionDenied); len(denied) != 1 || denied[0].Role != rbac.RoleUser {
		t.Fatalf("unexpected denied filter result: %+v", denied)
	}
}

func TestEventsAreStamped(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(
		WithRecorderClock(func() time.Time { return now }),
		WithUserAgent("retensync-api/test"),
	)
	rec.Log(context.Background(), Event{Type: EventTokenExpired, UserID: "u-1"})

	events := rec.Recent("")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID == "" {
		t.Fatal("event must carry an ID")
	}
	if !ev.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp: %v", ev.Timestamp)
	}
	if ev.UserAgent != "retensync-api/test" {
		t.Fatalf("unexpected user agent: %q", ev.UserAgent)
	}
}

func TestForwardToSink(t *testing.T) {
	var hits atomic.Int64
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sink.Close()

	rec := NewRecorder(WithSink(sink.URL))
	rec.Log(context.Background(), Event{Type: EventSuspiciousActivity, Details: "refused api call"})

	if hits.Load() != 1 {
		t.Fatalf("expected 1 sink hit, got %d", hits.Load())
	}
}

func TestSinkFailureIsSwallowed(t *testing.T) {
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	sink.Close() // connection refused from now on

	rec := NewRecorder(WithSink(sink.URL))
	rec.Log(context.Background(), Event{Type: EventLogout})

	// The event is still buffered locally.
	if got := rec.Len(); got != 1 {
		t.Fatalf("expected event in buffer despite sink failure, got %d", got)
	}
}
