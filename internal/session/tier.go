package session

import (
	"context"
	"sync"
)

// Tier is one storage backend in the redundant session store. Tiers are
// attempted independently: a failing tier must never prevent the store
// from trying the others.
type Tier interface {
	Name() string
	// Read returns the stored record, possibly partial. ErrNoRecord when empty.
	Read(ctx context.Context) (Record, error)
	Write(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// MemoryTier is an in-process tier. It backs the primary slot in the
// default wiring and doubles as the session-scoped tier.
type MemoryTier struct {
	name string

	mu  sync.Mutex
	rec *Record
}

func NewMemoryTier(name string) *MemoryTier {
	return &MemoryTier{name: name}
}

func (t *MemoryTier) Name() string { return t.name }

func (t *MemoryTier) Read(ctx context.Context) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rec == nil {
		return Record{}, ErrNoRecord
	}
	return *t.rec, nil
}

func (t *MemoryTier) Write(ctx context.Context, rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec = &rec
	return nil
}

func (t *MemoryTier) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec = nil
	return nil
}
