// Package token issues and verifies the signed bearer credentials used by
// API and machine clients that cannot carry a session cookie. Tokens are
// self-contained: identity reference, role, and validity window live in the
// signed claims, never in server-side state.
package token
