// Package csrf issues and validates per-session anti-forgery tokens. A
// token is minted on safe requests, bound to the requesting user agent, and
// must accompany every state-changing request until it ages out. Tokens are
// not consumed on use, so one page load can back several mutations.
//
// The user-agent binding is a replay heuristic layered on top of session
// and bearer authentication, not a substitute for either.
package csrf
