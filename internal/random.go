package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const (
	sessionTokenSize = 32
	csrfTokenSize    = 32
)

// NewSessionToken returns a 256-bit random token encoded as unpadded
// base64url. The encoded form is what travels in the session cookie.
func NewSessionToken() (string, error) {
	var raw [sessionTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewCSRFToken returns a 256-bit random anti-forgery token encoded as
// unpadded base64url.
func NewCSRFToken() (string, error) {
	var raw [csrfTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidateTokenShape rejects values that cannot be a token this package
// issued, before any store lookup happens.
func ValidateTokenShape(token string, rawSize int) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return errors.New("invalid token encoding")
	}
	if len(raw) != rawSize {
		return errors.New("invalid token size")
	}
	return nil
}

// SessionTokenRawSize is the decoded byte length of a session token.
const SessionTokenRawSize = sessionTokenSize
