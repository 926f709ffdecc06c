package session

import (
	"context"
	"sync"
	"time"

	"retensync.io/internal/obs"
)

// Timeout thresholds mirrored by the security validator.
const (
	IdleLimit     = 60 * time.Minute
	SessionLimit  = 24 * time.Hour
	CheckInterval = time.Minute
)

// TimeoutReason distinguishes the two forced-termination paths.
type TimeoutReason string

const (
	TimeoutIdle    TimeoutReason = "idle"
	TimeoutSession TimeoutReason = "session"
)

// Monitor tracks session age and idle time and terminates the session
// when either limit is exceeded. It is an explicit service with a
// Start/Stop lifecycle rather than a process-wide singleton, so tests
// can run independent instances.
type Monitor struct {
	store        *Store
	clock        func() time.Time
	interval     time.Duration
	idleLimit    time.Duration
	sessionLimit time.Duration
	onTimeout    func(context.Context, TimeoutReason)

	mu           sync.Mutex
	running      bool
	sessionStart time.Time
	lastActivity time.Time
	stop         chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorClock overrides the monitor's time source.
func WithMonitorClock(fn func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if fn != nil {
			m.clock = fn
		}
	}
}

// WithInterval overrides the periodic check interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLimits overrides the idle and absolute session limits.
func WithLimits(idle, session time.Duration) MonitorOption {
	return func(m *Monitor) {
		if idle > 0 {
			m.idleLimit = idle
		}
		if session > 0 {
			m.sessionLimit = session
		}
	}
}

// WithTimeoutHandler installs the termination callback. The monitor has
// already cleared the token store when it fires.
func WithTimeoutHandler(fn func(context.Context, TimeoutReason)) MonitorOption {
	return func(m *Monitor) { m.onTimeout = fn }
}

// NewMonitor builds a stopped monitor bound to the given store.
func NewMonitor(store *Store, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store:        store,
		clock:        time.Now,
		interval:     CheckInterval,
		idleLimit:    IdleLimit,
		sessionLimit: SessionLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start resets the session clocks and begins periodic checks. Calling
// Start on a running monitor is a no-op: there is never more than one
// ticker per monitor.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	now := m.clock()
	m.sessionStart = now
	m.lastActivity = now
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	obs.SessionOpened()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				m.Stop()
				return
			case <-ticker.C:
				m.CheckNow(ctx)
			}
		}
	}()
}

// Touch records user activity.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.lastActivity = m.clock()
}

// Stop halts the checks. Safe to call any number of times.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
	obs.SessionClosed()
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// IdleElapsed returns time since the last observed activity.
func (m *Monitor) IdleElapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return 0
	}
	return m.clock().Sub(m.lastActivity)
}

// SessionElapsed returns the absolute session age.
func (m *Monitor) SessionElapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return 0
	}
	return m.clock().Sub(m.sessionStart)
}

// CheckNow runs one timeout check synchronously. Idle wins over
// absolute session age when both limits are exceeded.
func (m *Monitor) CheckNow(ctx context.Context) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	now := m.clock()
	idle := now.Sub(m.lastActivity)
	age := now.Sub(m.sessionStart)
	var reason TimeoutReason
	switch {
	case idle > m.idleLimit:
		reason = TimeoutIdle
	case age > m.sessionLimit:
		reason = TimeoutSession
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.terminate(ctx, reason, idle, age)
}

func (m *Monitor) terminate(ctx context.Context, reason TimeoutReason, idle, age time.Duration) {
	if m.store != nil {
		m.store.Remove(ctx)
	}
	obs.Info("session terminated", map[string]any{
		"reason":      string(reason),
		"idle_min":    int(idle / time.Minute),
		"session_min": int(age / time.Minute),
	})
	m.Stop()
	if m.onTimeout != nil {
		m.onTimeout(ctx, reason)
	}
}
