package queuesync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcdev12/slotsync/go/internal/estimator"
)

// MetricsCollector defines the interface for collecting synchronizer metrics
type MetricsCollector interface {
	RecordPoll(success bool, duration time.Duration)
	RecordReconcile(outcome estimator.Outcome)
	RecordDisplaySeconds(seconds int)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordPoll(success bool, duration time.Duration) {}
func (n *NoOpMetricsCollector) RecordReconcile(outcome estimator.Outcome)        {}
func (n *NoOpMetricsCollector) RecordDisplaySeconds(seconds int)                 {}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	polls          *prometheus.CounterVec
	pollLatency    prometheus.Histogram
	reconciles     *prometheus.CounterVec
	displaySeconds prometheus.Gauge
}

// NewPrometheusMetrics registers the synchronizer collectors with reg, or
// with the default registerer when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotsync",
			Subsystem: "poller",
			Name:      "polls_total",
			Help:      "Total queue status polls",
		}, []string{"status"}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotsync",
			Subsystem: "poller",
			Name:      "poll_latency_seconds",
			Help:      "Latency of queue status polls",
			Buckets:   prometheus.DefBuckets,
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotsync",
			Subsystem: "display",
			Name:      "reconcile_total",
			Help:      "Reconciliation outcomes of the wait display",
		}, []string{"outcome"}),
		displaySeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotsync",
			Subsystem: "display",
			Name:      "seconds",
			Help:      "Seconds currently shown on the wait display",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.polls, m.pollLatency, m.reconciles, m.displaySeconds)
	return m
}

func (m *PrometheusMetrics) RecordPoll(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.polls.WithLabelValues(status).Inc()
	m.pollLatency.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordReconcile(outcome estimator.Outcome) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(string(outcome)).Inc()
}

func (m *PrometheusMetrics) RecordDisplaySeconds(seconds int) {
	if m == nil {
		return
	}
	m.displaySeconds.Set(float64(seconds))
}
