// Package prometheus adapts the engine's internal counters to a
// prometheus.Collector. The engine never touches the Prometheus client on
// its hot path; scrape-time snapshots do all the work here.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harborcms/admingate"
)

// Snapshotter is the part of the engine the collector needs.
type Snapshotter interface {
	MetricsSnapshot() admingate.MetricsSnapshot
}

var metricNames = map[admingate.MetricID]string{
	admingate.MetricLoginSuccess:     "login_success_total",
	admingate.MetricLoginFailure:     "login_failure_total",
	admingate.MetricLoginLockedOut:   "login_locked_out_total",
	admingate.MetricSessionCreated:   "session_created_total",
	admingate.MetricSessionValidated: "session_validated_total",
	admingate.MetricSessionExpired:   "session_expired_total",
	admingate.MetricSessionDestroyed: "session_destroyed_total",
	admingate.MetricLogout:           "logout_total",
	admingate.MetricLogoutAll:        "logout_all_total",
	admingate.MetricAutoLogout:       "auto_logout_total",
	admingate.MetricTokenIssued:      "token_issued_total",
	admingate.MetricTokenRefreshed:   "token_refreshed_total",
	admingate.MetricTokenRejected:    "token_rejected_total",
	admingate.MetricCSRFIssued:       "csrf_issued_total",
	admingate.MetricCSRFRejected:     "csrf_rejected_total",
	admingate.MetricPasswordChanged:  "password_changed_total",
}

// Collector exposes engine counters under the admingate namespace.
type Collector struct {
	source Snapshotter
	descs  map[admingate.MetricID]*prometheus.Desc
}

// NewCollector builds a collector over source. Register it on any
// prometheus.Registerer.
func NewCollector(source Snapshotter) *Collector {
	descs := make(map[admingate.MetricID]*prometheus.Desc, len(metricNames))
	for id, name := range metricNames {
		descs[id] = prometheus.NewDesc(
			prometheus.BuildFQName("admingate", "", name),
			"admingate engine counter "+name,
			nil, nil,
		)
	}
	return &Collector{source: source, descs: descs}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.MetricsSnapshot()
	for id, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(snap.Counters[id]))
	}
}
