// Package metrics exposes Prometheus instrumentation for the verification
// flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verification module.
type Metrics struct {
	Attempts       *prometheus.CounterVec
	GateFailures   *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	VerifyLatency  prometheus.Histogram
	StatusRequests prometheus.Counter
}

// New creates and registers all verification metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verifid_verification_attempts_total",
			Help: "Total number of verification attempts, labeled by outcome",
		}, []string{"outcome"}),
		GateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verifid_gate_failures_total",
			Help: "Total number of verification gate failures, labeled by gate",
		}, []string{"gate"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verifid_provider_errors_total",
			Help: "Total number of provider call failures, labeled by provider and category",
		}, []string{"provider", "category"}),
		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verifid_verify_latency_seconds",
			Help:    "End-to-end latency of the verification flow in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		StatusRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verifid_status_requests_total",
			Help: "Total number of verification status lookups",
		}),
	}
}

// All recording methods are nil-safe so the service can run without metrics
// in tests.

func (m *Metrics) RecordAttempt(outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGateFailure(gate string) {
	if m == nil {
		return
	}
	m.GateFailures.WithLabelValues(gate).Inc()
}

func (m *Metrics) RecordProviderError(provider, category string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, category).Inc()
}

func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.VerifyLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordStatusRequest() {
	if m == nil {
		return
	}
	m.StatusRequests.Inc()
}
