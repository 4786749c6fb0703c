package lockout

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps store transport failures.
var ErrStoreUnavailable = errors.New("lockout store unavailable")

// Store is the counter capability the Tracker needs. Incr must be an atomic
// read-modify-write: concurrent failures may not lose counts. Each Incr
// restarts the cooldown window for the key.
type Store interface {
	Incr(ctx context.Context, key string) (int, error)
	Peek(ctx context.Context, key string) (count int, remaining time.Duration, err error)
	Delete(ctx context.Context, keys ...string) error
	Sweep(ctx context.Context) (int, error)
}

// Config holds the lockout policy.
type Config struct {
	Threshold int           // failures before the gate closes
	Window    time.Duration // cooldown after the last failure
	MaxAge    time.Duration // counters older than this are purged
}

// DefaultConfig returns the policy defaults: 5 failures, 15 minute
// cooldown, counters purged after 24 hours.
func DefaultConfig() Config {
	return Config{
		Threshold: 5,
		Window:    15 * time.Minute,
		MaxAge:    24 * time.Hour,
	}
}

// Tracker applies the lockout policy over a Store. Two keys are tracked per
// attempt: the client address alone, and the address combined with the
// attempted handle. Either tripping closes the gate.
type Tracker struct {
	store     Store
	threshold int
}

// NewTracker returns a Tracker enforcing cfg.Threshold over store.
func NewTracker(store Store, cfg Config) *Tracker {
	return &Tracker{store: store, threshold: cfg.Threshold}
}

// RecordFailure increments the counters for both client keys.
func (t *Tracker) RecordFailure(ctx context.Context, addr, handle string) error {
	if _, err := t.store.Incr(ctx, addrKey(addr)); err != nil {
		return err
	}
	_, err := t.store.Incr(ctx, pairKey(addr, handle))
	return err
}

// IsLockedOut reports whether either client key has reached the threshold
// inside its cooldown window, and how long until the gate reopens.
func (t *Tracker) IsLockedOut(ctx context.Context, addr, handle string) (bool, time.Duration, error) {
	locked, remaining, err := t.peek(ctx, addrKey(addr))
	if err != nil || locked {
		return locked, remaining, err
	}
	return t.peek(ctx, pairKey(addr, handle))
}

// Clear removes the counters for both client keys. Called on successful
// login so the next failure counts as failure #1.
func (t *Tracker) Clear(ctx context.Context, addr, handle string) error {
	return t.store.Delete(ctx, addrKey(addr), pairKey(addr, handle))
}

// Sweep purges counters past their retention age.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	return t.store.Sweep(ctx)
}

func (t *Tracker) peek(ctx context.Context, key string) (bool, time.Duration, error) {
	count, remaining, err := t.store.Peek(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if count >= t.threshold && remaining > 0 {
		return true, remaining, nil
	}
	return false, 0, nil
}

func addrKey(addr string) string {
	return "a:" + addr
}

func pairKey(addr, handle string) string {
	return "ah:" + addr + ":" + handle
}
