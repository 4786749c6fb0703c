package csrf

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestGuard(maxAge time.Duration) (*Guard, *time.Time) {
	guard := NewGuard(NewMemoryBackend(), maxAge)
	now := time.Now()
	guard.now = func() time.Time { return now }
	return guard, &now
}

func TestIssueAndCheck(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(time.Hour)

	tok, err := guard.Issue(ctx, "browser/1.0", "10.0.0.1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.Value == "" {
		t.Fatal("empty token value")
	}

	if err := guard.Check(ctx, tok.Value, "browser/1.0"); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(time.Hour)

	tok, _ := guard.Issue(ctx, "browser/1.0", "")
	for i := 0; i < 3; i++ {
		if err := guard.Check(ctx, tok.Value, "browser/1.0"); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}
}

func TestCheckMissing(t *testing.T) {
	guard, _ := newTestGuard(time.Hour)
	if err := guard.Check(context.Background(), "", "browser/1.0"); !errors.Is(err, ErrMissing) {
		t.Fatalf("want ErrMissing, got %v", err)
	}
}

func TestCheckUnknownToken(t *testing.T) {
	guard, _ := newTestGuard(time.Hour)
	if err := guard.Check(context.Background(), "never-issued", "browser/1.0"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestCheckUserAgentMismatch(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(time.Hour)

	tok, _ := guard.Issue(ctx, "browser/1.0", "")
	if err := guard.Check(ctx, tok.Value, "curl/8.0"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("want ErrMismatch, got %v", err)
	}
}

func TestCheckAgedToken(t *testing.T) {
	ctx := context.Background()
	guard, now := newTestGuard(time.Hour)

	tok, _ := guard.Issue(ctx, "browser/1.0", "")
	*now = now.Add(time.Hour)

	if err := guard.Check(ctx, tok.Value, "browser/1.0"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid at the age boundary, got %v", err)
	}
}

func TestSweepRemovesAgedTokens(t *testing.T) {
	ctx := context.Background()
	guard, now := newTestGuard(time.Hour)

	stale, _ := guard.Issue(ctx, "browser/1.0", "")
	*now = now.Add(30 * time.Minute)
	fresh, _ := guard.Issue(ctx, "browser/1.0", "")
	*now = now.Add(45 * time.Minute)

	removed, err := guard.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("want 1 removed, got %d", removed)
	}
	if err := guard.Check(ctx, stale.Value, "browser/1.0"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("stale token should be gone, got %v", err)
	}
	if err := guard.Check(ctx, fresh.Value, "browser/1.0"); err != nil {
		t.Fatalf("fresh token was swept: %v", err)
	}
}
