package admingate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/harborcms/admingate/csrf"
	internalaudit "github.com/harborcms/admingate/internal/audit"
	internalmetrics "github.com/harborcms/admingate/internal/metrics"
	"github.com/harborcms/admingate/lockout"
	"github.com/harborcms/admingate/password"
	"github.com/harborcms/admingate/session"
	"github.com/harborcms/admingate/token"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build; no I/O happens before then.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	provider AdminProvider
	sink     AuditSink
	built    bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis switches the session, lockout, and CSRF stores from in-process
// maps to the given Redis client, for multi-process deployments.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAdminProvider sets the external identity store. Required.
func (b *Builder) WithAdminProvider(p AdminProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink adds a sink that receives every audit event in addition to
// the engine's internal queryable log.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration and wires the engine. A Builder may be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.provider == nil {
		return nil, errors.New("admin provider required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password)
	if err != nil {
		return nil, err
	}

	tokens, err := token.New(b.config.tokenConfig())
	if err != nil {
		return nil, err
	}

	var (
		sessionBackend session.Backend
		lockoutStore   lockout.Store
		csrfBackend    csrf.Backend
	)
	lockoutCfg := lockout.Config{
		Threshold: b.config.Lockout.Threshold,
		Window:    b.config.Lockout.Window,
		MaxAge:    b.config.Lockout.MaxAge,
	}
	if b.redis != nil {
		sessionBackend = session.NewRedisBackend(b.redis, b.config.Session.RedisPrefix)
		lockoutStore = lockout.NewRedisStore(b.redis, b.config.Lockout.RedisPrefix, lockoutCfg)
		csrfBackend = csrf.NewRedisBackend(b.redis, b.config.CSRF.RedisPrefix)
	} else {
		sessionBackend = session.NewMemoryBackend()
		lockoutStore = lockout.NewMemoryStore(lockoutCfg)
		csrfBackend = csrf.NewMemoryBackend()
	}

	memlog := internalaudit.NewMemoryLog(b.config.Audit.MemoryLogCapacity)
	sink := internalaudit.Sink(memlog)
	if b.sink != nil {
		sink = internalaudit.NewFanoutSink(memlog, b.sink)
	}

	e := &Engine{
		config:   b.config,
		provider: b.provider,
		hasher:   hasher,
		tokens:   tokens,
		sessions: session.NewStore(sessionBackend, b.config.Session.MaxAge),
		lockouts: lockout.NewTracker(lockoutStore, lockoutCfg),
		guard:    csrf.NewGuard(csrfBackend, b.config.CSRF.MaxAge),
		memlog:   memlog,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, sink),
		metrics: internalmetrics.New(internalmetrics.Config{Enabled: b.config.Metrics.Enabled}),
		done:    make(chan struct{}),
	}
	e.startSweepers()

	b.built = true
	return e, nil
}
