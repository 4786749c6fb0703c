package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature scheme for bearer tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrMalformed is returned when a token does not parse, its signature
	// does not verify, or required claims are missing.
	ErrMalformed = errors.New("bearer token malformed")
	// ErrExpired is returned when a token parsed and verified but its
	// validity window has passed.
	ErrExpired = errors.New("bearer token expired")
)

// Config holds signing material and the token validity window.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	Secret        []byte // hs256
	PrivateKey    []byte // ed25519 seed or full private key
	PublicKey     []byte // ed25519
	Issuer        string
	Leeway        time.Duration
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	IdentityID string `json:"sub"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer tokens. It is immutable after New and
// safe for concurrent use.
type Manager struct {
	config Config
}

// New validates cfg and returns a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token leeway out of range")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer required")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 32 {
			return nil, errors.New("hs256 secret must be at least 32 bytes")
		}
	case MethodEd25519:
		if _, err := edPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := edPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a fresh token for the identity with the configured TTL.
func (m *Manager) Issue(identityID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		IdentityID: identityID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	tok := jwt.NewWithClaims(m.method(), claims)
	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// Verify parses and validates signature, issuer, and expiry. Expiry is the
// only failure distinguishable by callers; every other defect collapses to
// ErrMalformed so responses cannot be used to probe token structure.
func (m *Manager) Verify(signed string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(signed, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.IdentityID == "" || claims.Role == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Refresh verifies signed and, if it is currently valid, issues a new token
// for the same identity and role with a fresh validity window.
func (m *Manager) Refresh(signed string) (string, error) {
	claims, err := m.Verify(signed)
	if err != nil {
		return "", err
	}
	return m.Issue(claims.IdentityID, claims.Role)
}

// TTL reports the configured validity window.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.Secret, nil
	}
	return edPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.Secret, nil
	}
	return edPublicKey(m.config.PublicKey)
}

func edPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func edPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
