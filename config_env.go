package admingate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadEnv overlays environment variables onto cfg. Every knob has a safe
// default; operators override without code changes:
//
//	ADMINGATE_SESSION_MAX_AGE        duration, e.g. "24h"
//	ADMINGATE_SESSION_COOKIE_SECURE  bool
//	ADMINGATE_CSRF_MAX_AGE           duration
//	ADMINGATE_LOCKOUT_THRESHOLD      int
//	ADMINGATE_LOCKOUT_WINDOW         duration
//	ADMINGATE_TOKEN_TTL              duration
//	ADMINGATE_TOKEN_METHOD           "hs256" or "ed25519"
//	ADMINGATE_TOKEN_SECRET           base64 (hs256)
//	ADMINGATE_TOKEN_PRIVATE_KEY      base64 (ed25519)
//	ADMINGATE_TOKEN_PUBLIC_KEY       base64 (ed25519)
//	ADMINGATE_TOKEN_ISSUER           string
//	ADMINGATE_AUDIT_ENABLED          bool
//	ADMINGATE_METRICS_ENABLED        bool
//	ADMINGATE_IDLE_BUDGET            duration
//	ADMINGATE_IDLE_WARNING_LEAD      duration
func LoadEnv(cfg Config) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("admingate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.IsSet("session.max_age") {
		cfg.Session.MaxAge = v.GetDuration("session.max_age")
	}
	if v.IsSet("session.cookie_secure") {
		cfg.Session.CookieSecure = v.GetBool("session.cookie_secure")
	}
	if v.IsSet("csrf.max_age") {
		cfg.CSRF.MaxAge = v.GetDuration("csrf.max_age")
	}
	if v.IsSet("lockout.threshold") {
		cfg.Lockout.Threshold = v.GetInt("lockout.threshold")
	}
	if v.IsSet("lockout.window") {
		cfg.Lockout.Window = v.GetDuration("lockout.window")
	}
	if v.IsSet("token.ttl") {
		cfg.Token.TTL = v.GetDuration("token.ttl")
	}
	if v.IsSet("token.method") {
		cfg.Token.SigningMethod = v.GetString("token.method")
	}
	if v.IsSet("token.issuer") {
		cfg.Token.Issuer = v.GetString("token.issuer")
	}
	if v.IsSet("audit.enabled") {
		cfg.Audit.Enabled = v.GetBool("audit.enabled")
	}
	if v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	}
	if v.IsSet("idle.budget") {
		cfg.Idle.Budget = v.GetDuration("idle.budget")
	}
	if v.IsSet("idle.warning_lead") {
		cfg.Idle.WarningLead = v.GetDuration("idle.warning_lead")
	}

	var err error
	if cfg.Token.Secret, err = envKey(v, "token.secret", cfg.Token.Secret); err != nil {
		return cfg, err
	}
	if cfg.Token.PrivateKey, err = envKey(v, "token.private_key", cfg.Token.PrivateKey); err != nil {
		return cfg, err
	}
	if cfg.Token.PublicKey, err = envKey(v, "token.public_key", cfg.Token.PublicKey); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func envKey(v *viper.Viper, key string, current []byte) ([]byte, error) {
	if !v.IsSet(key) {
		return current, nil
	}
	raw, err := base64.StdEncoding.DecodeString(v.GetString(key))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.ToUpper("admingate_"+strings.ReplaceAll(key, ".", "_")), err)
	}
	return raw, nil
}
