// Package lockout counts failed authentication attempts per client key and
// gates the credential verifier behind a cooldown once a threshold is
// crossed. The gate runs before any secret comparison, so a locked-out
// client costs one counter read, not one hash.
package lockout
