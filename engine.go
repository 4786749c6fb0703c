package admingate

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	internalaudit "github.com/harborcms/admingate/internal/audit"
	internalmetrics "github.com/harborcms/admingate/internal/metrics"

	"github.com/harborcms/admingate/csrf"
	"github.com/harborcms/admingate/lockout"
	"github.com/harborcms/admingate/password"
	"github.com/harborcms/admingate/session"
	"github.com/harborcms/admingate/token"
)

// Engine coordinates the authentication subsystem: lockout gate, credential
// verification, session lifecycle, CSRF issuance, bearer tokens, and the
// audit trail. Configure through [Builder]; immutable afterwards.
type Engine struct {
	config   Config
	provider AdminProvider
	hasher   *password.Hasher
	tokens   *token.Manager
	sessions *session.Store
	lockouts *lockout.Tracker
	guard    *csrf.Guard
	audit    *internalaudit.Dispatcher
	memlog   *internalaudit.MemoryLog
	metrics  *internalmetrics.Metrics

	done      chan struct{}
	sweepers  sync.WaitGroup
	closeOnce sync.Once

	// lastLoginWG tracks detached last-login writes so Close can drain
	// them; login latency is never coupled to this persistence.
	lastLoginWG sync.WaitGroup
}

// Close stops background sweeps, drains pending async writes, and shuts
// down the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		close(e.done)
		e.sweepers.Wait()
		e.lastLoginWG.Wait()
		e.audit.Close()
	})
}

// Login authenticates a handle+secret pair. The lockout gate runs first: a
// locked-out client is rejected before any identity lookup or hash
// comparison. On success a session record and a bearer token are issued
// together, the client's failure counters are cleared, and the identity's
// last-login fields are updated off the critical path.
func (e *Engine) Login(ctx context.Context, handle, secret string) (*LoginResult, error) {
	if e == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)
	ua := userAgentFromContext(ctx)

	locked, remaining, err := e.lockouts.IsLockedOut(ctx, ip, handle)
	if err != nil {
		// A broken lockout store must fail closed: guessing may not
		// continue unmetered.
		return nil, err
	}
	if locked {
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, EventLoginLockedOut, false, "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"handle": handle}
		})
		return nil, &RateLimitedError{RetryAfter: remaining}
	}

	if handle == "" || secret == "" {
		return nil, e.loginFailure(ctx, "", handle, ip, "empty_input")
	}

	rec, err := e.provider.GetByHandle(ctx, handle)
	if err != nil {
		return nil, e.loginFailure(ctx, "", handle, ip, "unknown_handle")
	}
	if !rec.Active {
		// A distinct error for the caller, but still a failed attempt for
		// the lockout gate: probing deactivated accounts is not free.
		if err := e.lockouts.RecordFailure(ctx, ip, handle); err != nil {
			log.Printf("admingate: lockout record failed: %v", err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, false, rec.ID, "", ErrAccountDeactivated, func() map[string]string {
			return map[string]string{"handle": handle, "reason": "deactivated"}
		})
		return nil, ErrAccountDeactivated
	}

	ok, err := e.hasher.Verify(secret, rec.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginFailure(ctx, rec.ID, handle, ip, "secret_mismatch")
	}
	secret = ""

	if err := e.lockouts.Clear(ctx, ip, handle); err != nil {
		log.Printf("admingate: lockout clear failed: %v", err)
	}

	sess, err := e.sessions.Create(ctx, rec.ID, rec.Handle, rec.DisplayName, string(rec.Role), ip, ua)
	if err != nil {
		return nil, err
	}

	bearer, err := e.tokens.Issue(rec.ID, string(rec.Role))
	if err != nil {
		_ = e.sessions.Destroy(ctx, sess.Token)
		return nil, err
	}

	e.persistLastLoginAsync(rec.ID, ip)

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricTokenIssued)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, EventLoginSuccess, true, rec.ID, sess.Token, nil, func() map[string]string {
		return map[string]string{"handle": handle}
	})

	return &LoginResult{
		SessionToken: sess.Token,
		BearerToken:  bearer,
		Identity:     summaryFromRecord(rec),
	}, nil
}

func (e *Engine) loginFailure(ctx context.Context, identityID, handle, ip, reason string) error {
	if err := e.lockouts.RecordFailure(ctx, ip, handle); err != nil {
		log.Printf("admingate: lockout record failed: %v", err)
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, EventLoginFailure, false, identityID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"handle": handle, "reason": reason}
	})
	return ErrInvalidCredentials
}

// persistLastLoginAsync updates last-login metadata without holding up the
// login response. Failures are logged and otherwise ignored.
func (e *Engine) persistLastLoginAsync(identityID, ip string) {
	now := time.Now()
	e.lastLoginWG.Add(1)
	go func() {
		defer e.lastLoginWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.provider.UpdateLastLogin(ctx, identityID, now, ip); err != nil {
			log.Printf("admingate: last-login update failed: %v", err)
		}
	}()
}

// ValidateSession checks a session token and slides its activity window.
// Returns the caller-safe identity summary on success.
func (e *Engine) ValidateSession(ctx context.Context, sessionToken string) (IdentitySummary, error) {
	if e == nil {
		return IdentitySummary{}, ErrEngineNotReady
	}

	rec, err := e.sessions.Validate(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			e.metricInc(MetricSessionExpired)
			return IdentitySummary{}, ErrSessionInvalid
		}
		return IdentitySummary{}, err
	}

	e.metricInc(MetricSessionValidated)
	return IdentitySummary{
		ID:          rec.IdentityID,
		Handle:      rec.Handle,
		DisplayName: rec.DisplayName,
		Role:        Role(rec.Role),
	}, nil
}

// Logout destroys the session for token. The reason distinguishes manual
// logout from the idle monitor's automatic one in the audit trail. Logout
// of an already-dead session is not an error.
func (e *Engine) Logout(ctx context.Context, sessionToken string, reason LogoutReason) error {
	if e == nil {
		return ErrEngineNotReady
	}

	var identityID string
	if rec, err := e.sessions.Validate(ctx, sessionToken); err == nil {
		identityID = rec.IdentityID
	}

	if err := e.sessions.Destroy(ctx, sessionToken); err != nil {
		return err
	}

	kind := EventManualLogout
	if reason == LogoutIdle {
		kind = EventAutoLogout
		e.metricInc(MetricAutoLogout)
	} else {
		e.metricInc(MetricLogout)
	}
	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(ctx, kind, true, identityID, sessionToken, nil, nil)
	e.emitAudit(ctx, EventSessionDestroyed, true, identityID, sessionToken, nil, nil)
	return nil
}

// LogoutAll destroys every session owned by the identity and reports how
// many were removed. Used for forced multi-device logout.
func (e *Engine) LogoutAll(ctx context.Context, identityID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.sessions.DestroyAllForIdentity(ctx, identityID)
	if err != nil {
		return 0, err
	}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, EventLogoutAll, true, identityID, "", nil, func() map[string]string {
		return map[string]string{"sessions_destroyed": strconv.Itoa(n)}
	})
	return n, nil
}

// CSRFGuard exposes the anti-forgery guard for the HTTP layer.
func (e *Engine) CSRFGuard() *csrf.Guard {
	if e == nil {
		return nil
	}
	return e.guard
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// SecurityLogs returns one page of the audit log, newest first, along with
// the total number of retained events. Role gating happens at the HTTP
// boundary.
func (e *Engine) SecurityLogs(page, perPage int) ([]AuditEvent, int) {
	if e == nil || e.memlog == nil {
		return nil, 0
	}
	return e.memlog.Query(page, perPage)
}

func (e *Engine) startSweepers() {
	e.sweep(e.config.Session.SweepInterval, func(ctx context.Context) {
		if _, err := e.sessions.Sweep(ctx); err != nil {
			log.Printf("admingate: session sweep failed: %v", err)
		}
	})
	e.sweep(e.config.CSRF.SweepInterval, func(ctx context.Context) {
		if _, err := e.guard.Sweep(ctx); err != nil {
			log.Printf("admingate: csrf sweep failed: %v", err)
		}
	})
	e.sweep(e.config.Lockout.SweepInterval, func(ctx context.Context) {
		if _, err := e.lockouts.Sweep(ctx); err != nil {
			log.Printf("admingate: lockout sweep failed: %v", err)
		}
	})
}

// sweep runs fn on a fixed interval until Close. Sweeps only remove records
// already past their validity window, so overlap with foreground requests
// is safe.
func (e *Engine) sweep(interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	e.sweepers.Add(1)
	go func() {
		defer e.sweepers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn(context.Background())
			case <-e.done:
				return
			}
		}
	}()
}

func summaryFromRecord(rec AdminRecord) IdentitySummary {
	return IdentitySummary{
		ID:          rec.ID,
		Handle:      rec.Handle,
		DisplayName: rec.DisplayName,
		Role:        rec.Role,
	}
}
