package session

import (
	"context"
	"errors"
	"time"

	"github.com/harborcms/admingate/internal"
)

var (
	// ErrNotFound is returned when no record exists for a token.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a record exists but its activity window
	// has lapsed or it was destroyed.
	ErrExpired = errors.New("session expired")
	// ErrBackendUnavailable wraps backend transport failures.
	ErrBackendUnavailable = errors.New("session backend unavailable")
)

// Record is a single authenticated session. Only this package mutates it.
type Record struct {
	Token        string    `json:"token"`
	IdentityID   string    `json:"identity_id"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IP           string    `json:"ip"`
	UserAgent    string    `json:"user_agent"`
	Active       bool      `json:"active"`
}

// Backend is the minimal storage capability the Store needs. Implementations
// must make Save/Delete atomic with respect to concurrent Get calls.
type Backend interface {
	Save(ctx context.Context, rec Record, ttl time.Duration) error
	Get(ctx context.Context, token string) (Record, bool, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForIdentity(ctx context.Context, identityID string) (int, error)
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}

// Store enforces the session lifecycle on top of a Backend.
type Store struct {
	backend Backend
	maxAge  time.Duration
	now     func() time.Time
}

// NewStore returns a Store with the given activity window.
func NewStore(backend Backend, maxAge time.Duration) *Store {
	return &Store{
		backend: backend,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Create generates an unguessable token and persists a fresh record with
// creation and activity clocks set to now.
func (s *Store) Create(ctx context.Context, identityID, handle, displayName, role, ip, userAgent string) (Record, error) {
	tok, err := internal.NewSessionToken()
	if err != nil {
		return Record{}, err
	}

	now := s.now()
	rec := Record{
		Token:        tok,
		IdentityID:   identityID,
		Handle:       handle,
		DisplayName:  displayName,
		Role:         role,
		CreatedAt:    now,
		LastActivity: now,
		IP:           ip,
		UserAgent:    userAgent,
		Active:       true,
	}
	if err := s.backend.Save(ctx, rec, s.maxAge); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate looks up the record for token and, when it is alive, slides the
// activity clock forward and re-persists with a fresh TTL. A destroyed or
// aged-out record fails immediately; there is no grace window.
func (s *Store) Validate(ctx context.Context, token string) (Record, error) {
	if err := internal.ValidateTokenShape(token, internal.SessionTokenRawSize); err != nil {
		return Record{}, ErrNotFound
	}

	rec, ok, err := s.backend.Get(ctx, token)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNotFound
	}

	now := s.now()
	if !rec.Active || now.Sub(rec.LastActivity) >= s.maxAge {
		// Remove eagerly instead of waiting for the sweep.
		_ = s.backend.Delete(ctx, token)
		return Record{}, ErrExpired
	}

	rec.LastActivity = now
	if err := s.backend.Save(ctx, rec, s.maxAge); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Destroy removes the record for token. Destroy is idempotent and is a hard
// cutover: a Validate racing with Destroy either completes first or fails.
func (s *Store) Destroy(ctx context.Context, token string) error {
	return s.backend.Delete(ctx, token)
}

// DestroyAllForIdentity invalidates every session owned by the identity and
// reports how many were removed. Used for forced multi-device logout.
func (s *Store) DestroyAllForIdentity(ctx context.Context, identityID string) (int, error) {
	return s.backend.DeleteAllForIdentity(ctx, identityID)
}

// Sweep removes records idle past the activity window. Safe to run
// concurrently with foreground validation; it only touches records that are
// already invalid.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	return s.backend.Sweep(ctx, s.now().Add(-s.maxAge))
}

// MaxAge reports the configured activity window.
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}
