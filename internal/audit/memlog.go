package audit

import (
	"context"
	"sync"
)

// MemoryLog is a bounded, queryable Sink backing the security-log read
// endpoint. It keeps the newest capacity events; retention beyond that is
// an external concern (ship events out through another sink).
type MemoryLog struct {
	mu       sync.RWMutex
	events   []Event
	start    int // ring start
	count    int
	capacity int
}

// NewMemoryLog returns a log retaining at most capacity events.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryLog{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

func (l *MemoryLog) Emit(_ context.Context, event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := (l.start + l.count) % l.capacity
	l.events[idx] = event
	if l.count < l.capacity {
		l.count++
	} else {
		l.start = (l.start + 1) % l.capacity
	}
}

// Query returns one page of events, newest first, along with the total
// number retained. Pages are 1-based.
func (l *MemoryLog) Query(page, perPage int) ([]Event, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	offset := (page - 1) * perPage
	if offset >= l.count {
		return nil, l.count
	}

	n := perPage
	if offset+n > l.count {
		n = l.count - offset
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		// Newest-first: walk backwards from the last written slot.
		idx := (l.start + l.count - 1 - offset - i + 2*l.capacity) % l.capacity
		out = append(out, l.events[idx])
	}
	return out, l.count
}
