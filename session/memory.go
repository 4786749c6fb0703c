package session

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is a single-process Backend guarded by one RWMutex. TTLs are
// not tracked here; liveness is decided by the Store from LastActivity, and
// Sweep reclaims memory.
type MemoryBackend struct {
	mu         sync.RWMutex
	records    map[string]Record
	byIdentity map[string]map[string]struct{}
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records:    make(map[string]Record),
		byIdentity: make(map[string]map[string]struct{}),
	}
}

func (b *MemoryBackend) Save(_ context.Context, rec Record, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[rec.Token] = rec
	set, ok := b.byIdentity[rec.IdentityID]
	if !ok {
		set = make(map[string]struct{})
		b.byIdentity[rec.IdentityID] = set
	}
	set[rec.Token] = struct{}{}
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, token string) (Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.records[token]
	return rec, ok, nil
}

func (b *MemoryBackend) Delete(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.remove(token)
	return nil
}

func (b *MemoryBackend) DeleteAllForIdentity(_ context.Context, identityID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.byIdentity[identityID]
	n := len(set)
	for token := range set {
		delete(b.records, token)
	}
	delete(b.byIdentity, identityID)
	return n, nil
}

func (b *MemoryBackend) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for token, rec := range b.records {
		if !rec.Active || !rec.LastActivity.After(olderThan) {
			b.remove(token)
			removed++
		}
	}
	return removed, nil
}

// remove must be called with b.mu held.
func (b *MemoryBackend) remove(token string) {
	rec, ok := b.records[token]
	if !ok {
		return
	}
	delete(b.records, token)
	if set, ok := b.byIdentity[rec.IdentityID]; ok {
		delete(set, token)
		if len(set) == 0 {
			delete(b.byIdentity, rec.IdentityID)
		}
	}
}
