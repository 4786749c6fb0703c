package admingate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown handle and wrong secret alike,
	// so responses cannot be used to enumerate handles.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDeactivated is returned for identities whose active flag
	// is cleared.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrRateLimited is returned while a lockout is active. Use
	// [RetryAfter] to read the cooldown remaining.
	ErrRateLimited = errors.New("rate limited")
	// ErrSessionInvalid is returned for absent, expired, or destroyed
	// sessions.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrTokenExpired is returned for bearer tokens past their validity
	// window; clients should refresh or re-login.
	ErrTokenExpired = errors.New("bearer token expired")
	// ErrTokenMalformed is returned for bearer tokens that fail signature
	// or claim checks.
	ErrTokenMalformed = errors.New("bearer token malformed")
	// ErrPasswordPolicy is returned when a new secret violates policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when the new secret equals the current
	// one.
	ErrPasswordReuse = errors.New("new password must differ from current password")
	// ErrForbidden is returned when the caller's role tier is too low.
	ErrForbidden = errors.New("insufficient role")
	// ErrIdentityNotFound must be returned (or wrapped) by AdminProvider
	// lookups when no record exists, so the engine can tell a missing
	// identity from a store outage.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrEngineNotReady is returned from methods on an unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitedError carries the cooldown remaining alongside ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter extracts the cooldown from an ErrRateLimited-compatible error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
