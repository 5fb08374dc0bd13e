package metrics

// metrics.go provides prometheus metrics for the verification gateway.

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification result labels.
const (
	ResultVerified       = "verified"
	ResultRejected       = "rejected"
	ResultTransportFault = "transport_fault"
)

// Metrics provides centralized metrics collection for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal       *prometheus.CounterVec
	verificationsTotal   *prometheus.CounterVec
	verificationDuration prometheus.Histogram
}

// NewMetrics creates a new metrics instance with all collectors registered
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oba_decisions_total",
				Help: "Total number of enforcement decisions by marker",
			},
			[]string{"marker"},
		),
		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oba_verifications_total",
				Help: "Total number of verifier calls by result",
			},
			[]string{"result"},
		),
		verificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oba_verification_duration_seconds",
				Help:    "Duration of verifier calls",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	collectors := []prometheus.Collector{
		m.decisionsTotal,
		m.verificationsTotal,
		m.verificationDuration,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler returns the HTTP handler serving the registry in prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncDecisions(marker string) {
	m.decisionsTotal.WithLabelValues(marker).Inc()
}

func (m *Metrics) IncVerifications(result string) {
	m.verificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveVerificationDuration(seconds float64) {
	m.verificationDuration.Observe(seconds)
}
