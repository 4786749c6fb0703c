// Package admingate is the admin session and authentication subsystem for
// the HarborCMS backend. It proves who is acting on privileged endpoints
// and keeps that proof valid for a bounded time: session lifecycle, CSRF
// token issuance/validation, brute-force lockout, bearer-token
// issuance/refresh, and the audit trail behind all of them.
//
// # Architecture boundaries
//
// admingate is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (LoginResult, IdentitySummary, AuditEvent).
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. Storage backends for sessions,
// lockout counters, and CSRF tokens are interchangeable: in-process maps by
// default, Redis when a client is supplied to the builder.
//
// The CRUD/content store, page rendering, and upload handling are external
// collaborators. admingate only consumes an [AdminProvider] for identity
// records and never reads its own audit log to make decisions.
//
// # Ordering contract
//
// Login is gated by the lockout tracker before any credential lookup or
// hash comparison happens; a locked-out client costs one counter read.
// Session destruction is a hard cutover: a destroyed token fails the very
// next validation, with no caching window.
package admingate
