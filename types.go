package admingate

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/harborcms/admingate/internal/audit"
)

// Role is an ordered privilege tier.
type Role string

const (
	// RoleAdmin can operate every privileged endpoint except audit reads.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin additionally reads the security audit log.
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) tier() int {
	switch r {
	case RoleSuperAdmin:
		return 2
	case RoleAdmin:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.tier() > 0
}

// AtLeast reports whether r sits at or above other in the privilege order.
func (r Role) AtLeast(other Role) bool {
	return r.tier() >= other.tier()
}

// AdminRecord is the identity record admingate reads from the external
// store. Records are deactivated, never deleted.
type AdminRecord struct {
	ID           string
	Handle       string
	PasswordHash string
	DisplayName  string
	Role         Role
	Active       bool
	LastLoginAt  time.Time
	LastLoginIP  string
}

// AdminProvider is the interface the external identity store must
// implement. admingate reads records and updates only the password hash and
// last-login fields. Lookups for records that do not exist must return an
// error wrapping [ErrIdentityNotFound]; any other error is treated as a
// store failure, not an authentication verdict.
type AdminProvider interface {
	GetByHandle(ctx context.Context, handle string) (AdminRecord, error)
	GetByID(ctx context.Context, id string) (AdminRecord, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error
}

// IdentitySummary is the caller-safe view of an authenticated identity.
type IdentitySummary struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	SessionToken string
	BearerToken  string
	Identity     IdentitySummary
}

// BearerClaims is the verified content of a bearer token plus the
// re-checked identity summary.
type BearerClaims struct {
	Identity  IdentitySummary
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LogoutReason distinguishes operator-initiated logout from the idle
// monitor's automatic one in the audit trail.
type LogoutReason string

const (
	// LogoutManual is an explicit logout request.
	LogoutManual LogoutReason = "manual"
	// LogoutIdle is the idle monitor's automatic logout.
	LogoutIdle LogoutReason = "idle"
)

// AuditEvent is a structured security event record.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
