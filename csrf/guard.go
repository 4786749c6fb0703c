package csrf

import (
	"context"
	"errors"
	"time"

	"github.com/harborcms/admingate/internal"
)

var (
	// ErrMissing is returned when no token accompanies an unsafe request.
	ErrMissing = errors.New("csrf token missing")
	// ErrInvalid is returned when a presented token is unknown or aged out.
	ErrInvalid = errors.New("csrf token invalid")
	// ErrMismatch is returned when the presenting user agent does not match
	// the one the token was bound to.
	ErrMismatch = errors.New("csrf token context mismatch")
	// ErrBackendUnavailable wraps backend transport failures.
	ErrBackendUnavailable = errors.New("csrf backend unavailable")
)

// Token is an issued anti-forgery token with its binding context.
type Token struct {
	Value     string    `json:"value"`
	IssuedAt  time.Time `json:"issued_at"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
}

// Backend stores issued tokens. Implementations must be safe for
// concurrent use.
type Backend interface {
	Save(ctx context.Context, tok Token, ttl time.Duration) error
	Get(ctx context.Context, value string) (Token, bool, error)
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}

// Guard issues and checks tokens against a Backend.
type Guard struct {
	backend Backend
	maxAge  time.Duration
	now     func() time.Time
}

// NewGuard returns a Guard whose tokens stay valid for maxAge.
func NewGuard(backend Backend, maxAge time.Duration) *Guard {
	return &Guard{
		backend: backend,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Issue mints a token bound to the requesting user agent and address.
func (g *Guard) Issue(ctx context.Context, userAgent, ip string) (Token, error) {
	value, err := internal.NewCSRFToken()
	if err != nil {
		return Token{}, err
	}

	tok := Token{
		Value:     value,
		IssuedAt:  g.now(),
		UserAgent: userAgent,
		IP:        ip,
	}
	if err := g.backend.Save(ctx, tok, g.maxAge); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Check validates a presented token value against the requesting user
// agent. Success does not consume the token.
func (g *Guard) Check(ctx context.Context, value, userAgent string) error {
	if value == "" {
		return ErrMissing
	}

	tok, ok, err := g.backend.Get(ctx, value)
	if err != nil {
		return err
	}
	if !ok || g.now().Sub(tok.IssuedAt) >= g.maxAge {
		return ErrInvalid
	}
	if tok.UserAgent != userAgent {
		return ErrMismatch
	}
	return nil
}

// Sweep removes tokens past the age limit.
func (g *Guard) Sweep(ctx context.Context) (int, error) {
	return g.backend.Sweep(ctx, g.now().Add(-g.maxAge))
}

// MaxAge reports the configured token lifetime.
func (g *Guard) MaxAge() time.Duration {
	return g.maxAge
}
