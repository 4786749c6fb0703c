package admingate

import (
	"errors"
	"net/http"
	"time"

	"github.com/harborcms/admingate/password"
	"github.com/harborcms/admingate/token"
)

// Config is the full engine configuration tree. Start from
// [DefaultConfig], override fields, then pass to [Builder.WithConfig].
// Every timeout is an independent knob; none is derived from another.
type Config struct {
	Session  SessionConfig
	CSRF     CSRFConfig
	Lockout  LockoutConfig
	Token    TokenConfig
	Password password.Config
	Audit    AuditConfig
	Metrics  MetricsConfig
	Idle     IdleConfig
}

// SessionConfig controls the session store and its cookie.
type SessionConfig struct {
	// MaxAge is the sliding inactivity window. A session dies MaxAge after
	// its last validated request, or on explicit destroy.
	MaxAge        time.Duration
	CookieName    string
	CookieSecure  bool
	SameSite      http.SameSite
	SweepInterval time.Duration
	RedisPrefix   string
}

// CSRFConfig controls anti-forgery token issuance.
type CSRFConfig struct {
	MaxAge        time.Duration
	HeaderName    string
	CookieName    string
	FieldName     string
	SweepInterval time.Duration
	RedisPrefix   string
}

// LockoutConfig controls the brute-force gate.
type LockoutConfig struct {
	Threshold     int
	Window        time.Duration
	MaxAge        time.Duration
	SweepInterval time.Duration
	RedisPrefix   string
}

// TokenConfig controls bearer token signing. Exactly one of Secret (hs256)
// or the key pair (ed25519) must be set; there is no shipped default.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" or "ed25519"
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// AuditConfig controls the dispatcher and the in-memory queryable log.
type AuditConfig struct {
	Enabled           bool
	BufferSize        int
	DropIfFull        bool
	MemoryLogCapacity int
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// IdleConfig is the idle policy the server advertises to clients; the idle
// monitor itself runs client-side.
type IdleConfig struct {
	Budget      time.Duration
	WarningLead time.Duration
}

// DefaultConfig returns the documented policy defaults. The bearer signing
// material is intentionally absent and must be provided by the operator.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			MaxAge:        24 * time.Hour,
			CookieName:    "admingate_session",
			CookieSecure:  true,
			SameSite:      http.SameSiteStrictMode,
			SweepInterval: 5 * time.Minute,
		},
		CSRF: CSRFConfig{
			MaxAge:        time.Hour,
			HeaderName:    "X-CSRF-Token",
			CookieName:    "admingate_csrf",
			FieldName:     "csrf_token",
			SweepInterval: 10 * time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold:     5,
			Window:        15 * time.Minute,
			MaxAge:        24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Token: TokenConfig{
			TTL:           24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "admingate",
			Leeway:        30 * time.Second,
		},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:           true,
			BufferSize:        256,
			DropIfFull:        true,
			MemoryLogCapacity: 4096,
		},
		Metrics: MetricsConfig{Enabled: true},
		Idle: IdleConfig{
			Budget:      15 * time.Minute,
			WarningLead: time.Minute,
		},
	}
}

// Validate rejects configurations the engine cannot run safely.
func (c Config) Validate() error {
	switch {
	case c.Session.MaxAge <= 0:
		return errors.New("session max age must be positive")
	case c.Session.CookieName == "":
		return errors.New("session cookie name required")
	case c.CSRF.MaxAge <= 0:
		return errors.New("csrf max age must be positive")
	case c.CSRF.HeaderName == "" || c.CSRF.CookieName == "" || c.CSRF.FieldName == "":
		return errors.New("csrf header, cookie, and field names required")
	case c.Lockout.Threshold < 1:
		return errors.New("lockout threshold must be >= 1")
	case c.Lockout.Window <= 0:
		return errors.New("lockout window must be positive")
	case c.Lockout.MaxAge < c.Lockout.Window:
		return errors.New("lockout retention must cover the window")
	case c.Token.TTL <= 0:
		return errors.New("token TTL must be positive")
	case c.Idle.Budget <= 0 || c.Idle.WarningLead <= 0:
		return errors.New("idle budget and warning lead must be positive")
	case c.Idle.WarningLead >= c.Idle.Budget:
		return errors.New("idle warning lead must be shorter than the budget")
	}
	return nil
}

func (c Config) tokenConfig() token.Config {
	method := token.SigningMethod(c.Token.SigningMethod)
	if method == "" {
		method = token.MethodHS256
	}
	return token.Config{
		TTL:           c.Token.TTL,
		SigningMethod: method,
		Secret:        c.Token.Secret,
		PrivateKey:    c.Token.PrivateKey,
		PublicKey:     c.Token.PublicKey,
		Issuer:        c.Token.Issuer,
		Leeway:        c.Token.Leeway,
	}
}
