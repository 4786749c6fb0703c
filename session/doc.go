// Package session tracks authenticated admin sessions keyed by opaque
// tokens. Expiration is sliding: every successful validation resets the
// activity clock, and a session dies only after MaxAge of inactivity or an
// explicit destroy. Backends (in-process map, Redis) are interchangeable
// behind the Backend interface.
package session
