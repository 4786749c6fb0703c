// Package audit carries the security event model and the asynchronous
// dispatch machinery behind it. Emission is best-effort by design: a full
// buffer or failing sink never blocks or fails the authentication decision
// that produced the event.
package audit
