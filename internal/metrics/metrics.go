// Package metrics keeps hot-path counters as in-process atomics. Export to
// monitoring systems happens at the edge (metrics/export), never inline in
// the authentication path.
package metrics

import "sync/atomic"

// MetricID identifies one counter.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLockedOut
	MetricSessionCreated
	MetricSessionValidated
	MetricSessionExpired
	MetricSessionDestroyed
	MetricLogout
	MetricLogoutAll
	MetricAutoLogout
	MetricTokenIssued
	MetricTokenRefreshed
	MetricTokenRejected
	MetricCSRFIssued
	MetricCSRFRejected
	MetricPasswordChanged

	MetricIDCount
)

// Config controls whether counting is active.
type Config struct {
	Enabled bool
}

// Metrics is a fixed array of atomic counters. A nil or disabled Metrics
// is a no-op.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New returns a Metrics instance; all operations are no-ops when disabled.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get reads a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// SnapshotAll deep-copies every counter.
func (m *Metrics) SnapshotAll() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
