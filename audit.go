package admingate

import (
	"context"
	"time"

	internalaudit "github.com/harborcms/admingate/internal/audit"
)

// Audit event kinds recorded by the engine. These values appear verbatim
// in the security log.
const (
	EventLoginSuccess     = "LOGIN_SUCCESS"
	EventLoginFailure     = "LOGIN_FAILURE"
	EventLoginLockedOut   = "LOGIN_LOCKED_OUT"
	EventManualLogout     = "MANUAL_LOGOUT"
	EventAutoLogout       = "AUTO_LOGOUT"
	EventLogoutAll        = "LOGOUT_ALL"
	EventSessionDestroyed = "SESSION_DESTROYED"
	EventTokenRefresh     = "TOKEN_REFRESH"
	EventPasswordChanged  = "PASSWORD_CHANGED"
	EventCSRFRejected     = "CSRF_REJECTED"
)

// emitAudit records a security event without ever blocking the decision
// that produced it. Metadata is built lazily so disabled auditing costs a
// nil check.
func (e *Engine) emitAudit(ctx context.Context, kind string, success bool, identityID, sessionToken string, cause error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.Event{
		ID:         internalaudit.NewEventID(),
		Timestamp:  time.Now(),
		Kind:       kind,
		IdentityID: identityID,
		IP:         clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Success:    success,
	}
	if sessionToken != "" {
		// Log a prefix only; a full token in the audit trail would be a
		// credential leak.
		event.SessionID = sessionTokenFingerprint(sessionToken)
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

func sessionTokenFingerprint(token string) string {
	const keep = 8
	if len(token) <= keep {
		return token
	}
	return token[:keep]
}

// AuditDropped reports how many audit events were discarded under
// backpressure since the engine started.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}
