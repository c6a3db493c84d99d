// Package observability exposes Prometheus metrics for the audit
// pipeline. Metrics are optional everywhere they are consumed; a nil
// *Metrics is a valid no-op receiver.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the audit pipeline.
type Metrics struct {
	auditsCompleted   *prometheus.CounterVec
	auditsFailed      prometheus.Counter
	auditRetries      prometheus.Counter
	notificationsSent prometheus.Counter
	auditDuration     prometheus.Histogram
	queueDepth        prometheus.Gauge
}

// NewMetrics creates and registers the audit metrics with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		auditsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicsaudit_audits_completed_total",
			Help: "Total number of successfully completed audits, by risk level",
		}, []string{"risk_level"}),
		auditsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethicsaudit_audits_failed_total",
			Help: "Total number of audits that exhausted all retry attempts",
		}),
		auditRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethicsaudit_audit_retries_total",
			Help: "Total number of audit attempt failures that were retried",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethicsaudit_notifications_sent_total",
			Help: "Total number of high-risk alerts dispatched",
		}),
		auditDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ethicsaudit_audit_duration_seconds",
			Help:    "End-to-end duration of a single audit attempt",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ethicsaudit_queue_depth",
			Help: "Number of audit jobs currently pending or retrying",
		}),
	}

	collectors := []prometheus.Collector{
		m.auditsCompleted,
		m.auditsFailed,
		m.auditRetries,
		m.notificationsSent,
		m.auditDuration,
		m.queueDepth,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordAuditCompleted increments the completion counter for a level.
func (m *Metrics) RecordAuditCompleted(riskLevel string) {
	if m == nil {
		return
	}
	m.auditsCompleted.WithLabelValues(riskLevel).Inc()
}

// RecordAuditFailed increments the permanent-failure counter.
func (m *Metrics) RecordAuditFailed() {
	if m == nil {
		return
	}
	m.auditsFailed.Inc()
}

// RecordAuditRetry increments the retry counter.
func (m *Metrics) RecordAuditRetry() {
	if m == nil {
		return
	}
	m.auditRetries.Inc()
}

// RecordNotificationSent increments the alert counter.
func (m *Metrics) RecordNotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}

// ObserveAuditDuration records how long a single audit attempt took.
func (m *Metrics) ObserveAuditDuration(seconds float64) {
	if m == nil {
		return
	}
	m.auditDuration.Observe(seconds)
}

// SetQueueDepth records the current number of in-flight audit jobs.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
