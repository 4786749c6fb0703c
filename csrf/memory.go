package csrf

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is a single-process Backend guarded by one RWMutex.
type MemoryBackend struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tokens: make(map[string]Token)}
}

func (b *MemoryBackend) Save(_ context.Context, tok Token, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens[tok.Value] = tok
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, value string) (Token, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tok, ok := b.tokens[value]
	return tok, ok, nil
}

func (b *MemoryBackend) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for value, tok := range b.tokens {
		if !tok.IssuedAt.After(olderThan) {
			delete(b.tokens, value)
			removed++
		}
	}
	return removed, nil
}
