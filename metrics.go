package admingate

import internalmetrics "github.com/harborcms/admingate/internal/metrics"

// MetricID identifies a specific engine counter.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess     = internalmetrics.MetricLoginSuccess
	MetricLoginFailure     = internalmetrics.MetricLoginFailure
	MetricLoginLockedOut   = internalmetrics.MetricLoginLockedOut
	MetricSessionCreated   = internalmetrics.MetricSessionCreated
	MetricSessionValidated = internalmetrics.MetricSessionValidated
	MetricSessionExpired   = internalmetrics.MetricSessionExpired
	MetricSessionDestroyed = internalmetrics.MetricSessionDestroyed
	MetricLogout           = internalmetrics.MetricLogout
	MetricLogoutAll        = internalmetrics.MetricLogoutAll
	MetricAutoLogout       = internalmetrics.MetricAutoLogout
	MetricTokenIssued      = internalmetrics.MetricTokenIssued
	MetricTokenRefreshed   = internalmetrics.MetricTokenRefreshed
	MetricTokenRejected    = internalmetrics.MetricTokenRejected
	MetricCSRFIssued       = internalmetrics.MetricCSRFIssued
	MetricCSRFRejected     = internalmetrics.MetricCSRFRejected
	MetricPasswordChanged  = internalmetrics.MetricPasswordChanged
)

// Metrics holds the engine's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// MetricsSnapshot returns a copy of every counter. Safe to call while the
// engine is serving requests.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.SnapshotAll()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}
