// Package password implements argon2id hashing and verification for admin
// secrets using the PHC string format. Verification uses a constant-time
// comparison of the derived keys.
package password
