package session

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newIdleTestMonitor(t *testing.T, clock *fakeClock, store *Store, reasons *[]TimeoutReason) *Monitor {
	t.Helper()
	return NewMonitor(store,
		WithMonitorClock(clock.Now),
		WithTimeoutHandler(func(_ context.Context, reason TimeoutReason) {
			*reasons = append(*reasons, reason)
		}),
	)
}

func TestIdleTimeoutWinsOverSessionAge(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock.Now, NewMemoryTier("primary"))
	store.Save(context.Background(), testRecord(clock.now.Add(48*time.Hour)))

	var reasons []TimeoutReason
	mon := newIdleTestMonitor(t, clock, store, &reasons)
	mon.Start(context.Background())
	defer mon.Stop()

	// Activity at minute 10, then silence: session age stays modest
	// while idle time crosses the limit.
	clock.Advance(10 * time.Minute)
	mon.Touch()

	clock.Advance(61 * time.Minute)
	mon.CheckNow(context.Background())

	if len(reasons) != 1 || reasons[0] != TimeoutIdle {
		t.Fatalf("expected one idle timeout, got %v", reasons)
	}
	if info := store.Read(context.Background()); info.Valid {
		t.Fatal("token store must be cleared on idle timeout")
	}
	if mon.Running() {
		t.Fatal("monitor must stop after termination")
	}
}

func TestSessionTimeoutWhenStillActive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock.Now, NewMemoryTier("primary"))
	store.Save(context.Background(), testRecord(clock.now.Add(48*time.Hour)))

	var reasons []TimeoutReason
	mon := newIdleTestMonitor(t, clock, store, &reasons)
	mon.Start(context.Background())
	defer mon.Stop()

	// Keep touching so idle never trips; only absolute age does.
	for i := 0; i < 25; i++ {
		clock.Advance(time.Hour)
		mon.Touch()
	}
	mon.CheckNow(context.Background())

	if len(reasons) != 1 || reasons[0] != TimeoutSession {
		t.Fatalf("expected one session timeout, got %v", reasons)
	}
}

func TestNoTimeoutWithinLimits(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock.Now, NewMemoryTier("primary"))
	store.Save(context.Background(), testRecord(clock.now.Add(48*time.Hour)))

	var reasons []TimeoutReason
	mon := newIdleTestMonitor(t, clock, store, &reasons)
	mon.Start(context.Background())
	defer mon.Stop()

	clock.Advance(30 * time.Minute)
	mon.CheckNow(context.Background())

	if len(reasons) != 0 {
		t.Fatalf("no timeout expected, got %v", reasons)
	}
	if info := store.Read(context.Background()); !info.Valid {
		t.Fatal("session should survive a check within limits")
	}
}

func TestStopIsIdempotentAndStartIsSingle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock.Now, NewMemoryTier("primary"))
	mon := NewMonitor(store, WithMonitorClock(clock.Now))

	mon.Start(context.Background())
	first := mon.SessionElapsed()
	clock.Advance(5 * time.Minute)
	// Re-initialization while running must not reset the clocks.
	mon.Start(context.Background())
	if mon.SessionElapsed() <= first {
		t.Fatal("second Start must not reset the session clock")
	}

	mon.Stop()
	mon.Stop()
	mon.Stop()
	if mon.Running() {
		t.Fatal("monitor should be stopped")
	}

	// A fresh Start after Stop resets the clocks again.
	mon.Start(context.Background())
	defer mon.Stop()
	if mon.SessionElapsed() != 0 {
		t.Fatalf("restart should reset session age, got %v", mon.SessionElapsed())
	}
}

func TestElapsedAccounting(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	mon := NewMonitor(nil, WithMonitorClock(clock.Now))
	mon.Start(context.Background())
	defer mon.Stop()

	clock.Advance(10 * time.Minute)
	mon.Touch()
	clock.Advance(7 * time.Minute)

	if got := mon.SessionElapsed(); got != 17*time.Minute {
		t.Fatalf("session elapsed: got %v", got)
	}
	if got := mon.IdleElapsed(); got != 7*time.Minute {
		t.Fatalf("idle elapsed: got %v", got)
	}
}
