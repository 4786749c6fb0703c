// Package idle runs the client-side inactivity state machine. The server
// only advertises the idle policy; tracking activity, warning the operator,
// and firing the automatic logout all happen in the client process hosting
// this monitor.
package idle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the monitor's position in the inactivity lifecycle.
type State int

const (
	// StateActive means activity was seen within the budget.
	StateActive State = iota
	// StateWarning means the warning lead has started; without an extend
	// or fresh activity the session will be logged out.
	StateWarning
	// StateLoggedOut is terminal; the monitor must be rebuilt after login.
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// ErrStopped is returned by operations on a stopped or logged-out monitor.
var ErrStopped = errors.New("idle: monitor stopped")

// Client is the server half the monitor drives: extending the session
// slides its activity window, logout destroys it with the idle reason.
type Client interface {
	ExtendSession(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Config sets the inactivity policy, normally copied from the login
// response.
type Config struct {
	// Budget is the full inactivity allowance.
	Budget time.Duration
	// WarningLead is how long before expiry the warning fires. Must be
	// shorter than Budget.
	WarningLead time.Duration

	// OnWarning is called when the monitor enters StateWarning.
	OnWarning func(remaining time.Duration)
	// OnLogout is called once after the automatic logout, with the
	// client's logout error if any.
	OnLogout func(err error)
}

// Monitor is the inactivity state machine. All methods are safe for
// concurrent use.
type Monitor struct {
	mu      sync.Mutex
	cfg     Config
	client  Client
	state   State
	gen     uint64
	warnT   *time.Timer
	logoutT *time.Timer
	stopped bool
}

// NewMonitor starts a monitor in StateActive with both timers armed.
func NewMonitor(cfg Config, client Client) (*Monitor, error) {
	if cfg.Budget <= 0 || cfg.WarningLead <= 0 || cfg.WarningLead >= cfg.Budget {
		return nil, errors.New("idle: warning lead must be positive and shorter than the budget")
	}
	if client == nil {
		return nil, errors.New("idle: client required")
	}

	m := &Monitor{cfg: cfg, client: client, state: StateActive}
	m.mu.Lock()
	m.armLocked()
	m.mu.Unlock()
	return m, nil
}

// State reports the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Activity records operator input. In StateActive and StateWarning it
// resets the clock and returns to StateActive; after logout it is a no-op
// returning ErrStopped.
func (m *Monitor) Activity() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.state == StateLoggedOut {
		return ErrStopped
	}
	m.state = StateActive
	m.armLocked()
	return nil
}

// Extend asks the server to slide the session window, then resets the local
// clock. Called from the warning dialog's "stay signed in" action. A failed
// extend leaves the timers untouched so the deadline still fires.
func (m *Monitor) Extend(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped || m.state == StateLoggedOut {
		m.mu.Unlock()
		return ErrStopped
	}
	m.mu.Unlock()

	if err := m.client.ExtendSession(ctx); err != nil {
		return err
	}
	return m.Activity()
}

// Stop cancels the timers without logging out. Used when the operator logs
// out manually and the monitor is being discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.gen++
	m.stopTimersLocked()
}

// armLocked restarts both timers under a new generation. The generation
// check in the callbacks kills timers from a previous arming that fire
// after a reset.
func (m *Monitor) armLocked() {
	m.gen++
	gen := m.gen
	m.stopTimersLocked()

	warnIn := m.cfg.Budget - m.cfg.WarningLead
	m.warnT = time.AfterFunc(warnIn, func() { m.onWarn(gen) })
	m.logoutT = time.AfterFunc(m.cfg.Budget, func() { m.onDeadline(gen) })
}

func (m *Monitor) stopTimersLocked() {
	if m.warnT != nil {
		m.warnT.Stop()
		m.warnT = nil
	}
	if m.logoutT != nil {
		m.logoutT.Stop()
		m.logoutT = nil
	}
}

func (m *Monitor) onWarn(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || m.state != StateActive {
		m.mu.Unlock()
		return
	}
	m.state = StateWarning
	hook := m.cfg.OnWarning
	m.mu.Unlock()

	if hook != nil {
		hook(m.cfg.WarningLead)
	}
}

func (m *Monitor) onDeadline(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || m.state == StateLoggedOut {
		m.mu.Unlock()
		return
	}
	m.state = StateLoggedOut
	m.stopped = true
	m.stopTimersLocked()
	hook := m.cfg.OnLogout
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := m.client.Logout(ctx)
	if hook != nil {
		hook(err)
	}
}
