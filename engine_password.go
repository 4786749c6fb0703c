package admingate

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/harborcms/admingate/password"
)

// ChangePassword re-verifies the current secret, installs a new hash, and
// destroys every session the identity owns, forcing re-login on all devices.
// Bearer tokens already in the wild keep their cryptographic validity until
// expiry; their window is bounded by Config.Token.TTL.
func (e *Engine) ChangePassword(ctx context.Context, identityID, currentSecret, newSecret string) error {
	if e == nil || e.provider == nil {
		return ErrEngineNotReady
	}

	rec, err := e.provider.GetByID(ctx, identityID)
	if err != nil {
		return ErrInvalidCredentials
	}
	if !rec.Active {
		return ErrAccountDeactivated
	}

	ok, err := e.hasher.Verify(currentSecret, rec.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventPasswordChanged, false, identityID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "current_secret_mismatch"}
		})
		return ErrInvalidCredentials
	}

	if newSecret == currentSecret {
		return ErrPasswordReuse
	}

	hash, err := e.hasher.Hash(newSecret)
	if err != nil {
		if errors.Is(err, password.ErrSecretTooShort) {
			return ErrPasswordPolicy
		}
		return err
	}
	currentSecret, newSecret = "", ""

	if err := e.provider.UpdatePasswordHash(ctx, identityID, hash); err != nil {
		return err
	}

	destroyed, err := e.sessions.DestroyAllForIdentity(ctx, identityID)
	if err != nil {
		// The hash is already rotated; old sessions must not survive a
		// store hiccup silently.
		log.Printf("admingate: session purge after password change failed: %v", err)
		return err
	}

	if ip := clientIPFromContext(ctx); ip != "" {
		if err := e.lockouts.Clear(ctx, ip, rec.Handle); err != nil {
			log.Printf("admingate: lockout clear failed: %v", err)
		}
	}

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, EventPasswordChanged, true, identityID, "", nil, func() map[string]string {
		return map[string]string{"sessions_destroyed": strconv.Itoa(destroyed)}
	})
	return nil
}
