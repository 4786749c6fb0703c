package lockout

import (
	"context"
	"testing"
	"time"
)

func newTestTracker(threshold int, window time.Duration) (*Tracker, *time.Time) {
	cfg := Config{Threshold: threshold, Window: window, MaxAge: 24 * time.Hour}
	store := NewMemoryStore(cfg)
	now := time.Now()
	store.now = func() time.Time { return now }
	return NewTracker(store, cfg), &now
}

func TestGateClosesAtThreshold(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(3, 15*time.Minute)

	for i := 0; i < 2; i++ {
		if err := tracker.RecordFailure(ctx, "10.0.0.1", "root"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		locked, _, err := tracker.IsLockedOut(ctx, "10.0.0.1", "root")
		if err != nil {
			t.Fatalf("IsLockedOut: %v", err)
		}
		if locked {
			t.Fatalf("locked after %d failures, threshold is 3", i+1)
		}
	}

	if err := tracker.RecordFailure(ctx, "10.0.0.1", "root"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	locked, remaining, err := tracker.IsLockedOut(ctx, "10.0.0.1", "root")
	if err != nil {
		t.Fatalf("IsLockedOut: %v", err)
	}
	if !locked {
		t.Fatal("gate should be closed at threshold")
	}
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Fatalf("unexpected cooldown remaining: %v", remaining)
	}
}

func TestAddressKeyLocksAcrossHandles(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(3, 15*time.Minute)

	// Same address spraying different handles still trips the address key.
	for _, handle := range []string{"root", "admin", "ops"} {
		if err := tracker.RecordFailure(ctx, "10.0.0.1", handle); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	locked, _, err := tracker.IsLockedOut(ctx, "10.0.0.1", "yet-another")
	if err != nil {
		t.Fatalf("IsLockedOut: %v", err)
	}
	if !locked {
		t.Fatal("address key should lock regardless of handle")
	}

	// A different address is unaffected.
	locked, _, _ = tracker.IsLockedOut(ctx, "10.0.0.2", "root")
	if locked {
		t.Fatal("unrelated address locked")
	}
}

func TestWindowLapseReopensGate(t *testing.T) {
	ctx := context.Background()
	tracker, now := newTestTracker(3, 15*time.Minute)

	for i := 0; i < 3; i++ {
		_ = tracker.RecordFailure(ctx, "10.0.0.1", "root")
	}
	if locked, _, _ := tracker.IsLockedOut(ctx, "10.0.0.1", "root"); !locked {
		t.Fatal("gate should be closed")
	}

	*now = now.Add(16 * time.Minute)
	if locked, _, _ := tracker.IsLockedOut(ctx, "10.0.0.1", "root"); locked {
		t.Fatal("gate should reopen after the cooldown window")
	}

	// Stale counts reset: the next failure is failure #1 again.
	_ = tracker.RecordFailure(ctx, "10.0.0.1", "root")
	if locked, _, _ := tracker.IsLockedOut(ctx, "10.0.0.1", "root"); locked {
		t.Fatal("single failure after lapse should not lock")
	}
}

func TestEachFailureRestartsWindow(t *testing.T) {
	ctx := context.Background()
	tracker, now := newTestTracker(3, 15*time.Minute)

	// Failures spaced inside the window accumulate; the cooldown runs from
	// the most recent one.
	for i := 0; i < 3; i++ {
		_ = tracker.RecordFailure(ctx, "10.0.0.1", "root")
		*now = now.Add(10 * time.Minute)
	}

	locked, remaining, _ := tracker.IsLockedOut(ctx, "10.0.0.1", "root")
	if !locked {
		t.Fatal("gate should be closed")
	}
	if remaining > 5*time.Minute {
		t.Fatalf("cooldown should run from the last failure, remaining %v", remaining)
	}
}

func TestClearResetsCounters(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(3, 15*time.Minute)

	for i := 0; i < 3; i++ {
		_ = tracker.RecordFailure(ctx, "10.0.0.1", "root")
	}
	if err := tracker.Clear(ctx, "10.0.0.1", "root"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if locked, _, _ := tracker.IsLockedOut(ctx, "10.0.0.1", "root"); locked {
		t.Fatal("gate still closed after Clear")
	}
}

func TestSweepPurgesOldCounters(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Threshold: 3, Window: 15 * time.Minute, MaxAge: time.Hour}
	store := NewMemoryStore(cfg)
	now := time.Now()
	store.now = func() time.Time { return now }
	tracker := NewTracker(store, cfg)

	_ = tracker.RecordFailure(ctx, "10.0.0.1", "root")
	now = now.Add(2 * time.Hour)

	removed, err := tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 { // addr key and addr+handle key
		t.Fatalf("want 2 removed, got %d", removed)
	}
}
