package lockout

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count       int
	lastFailure time.Time
}

// MemoryStore is a single-process Store guarded by one mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	window  time.Duration
	maxAge  time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process counter store with the given
// cooldown window and retention age.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		window:  cfg.Window,
		maxAge:  cfg.MaxAge,
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := s.entries[key]
	if entry.count == 0 || now.Sub(entry.lastFailure) > s.window {
		entry.count = 0
	}
	entry.count++
	entry.lastFailure = now
	s.entries[key] = entry
	return entry.count, nil
}

func (s *MemoryStore) Peek(_ context.Context, key string) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return 0, 0, nil
	}
	remaining := s.window - s.now().Sub(entry.lastFailure)
	if remaining <= 0 {
		return entry.count, 0, nil
	}
	return entry.count, remaining, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for key, entry := range s.entries {
		if entry.lastFailure.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
