package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Contract invocation metrics
	contractInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_invocations_total",
			Help: "Total number of chaincode contract invocations",
		},
		[]string{"contract", "function", "status", "service"},
	)

	contractInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contract_invocation_duration_seconds",
			Help:    "Duration of chaincode contract invocations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		},
		[]string{"contract", "function", "service"},
	)

	// Ledger event metrics
	ledgerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_total",
			Help: "Total number of ledger events emitted",
		},
		[]string{"event", "service"},
	)

	// Authorization metrics
	authorizationDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_denials_total",
			Help: "Total number of denied contract invocations",
		},
		[]string{"contract", "function", "service"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	// Register metrics
	prometheus.MustRegister(
		contractInvocationsTotal,
		contractInvocationDuration,
		ledgerEventsTotal,
		authorizationDenialsTotal,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordInvocation records a contract invocation outcome
func (m *MetricsCollector) RecordInvocation(contract, function, status string, duration time.Duration) {
	contractInvocationsTotal.WithLabelValues(contract, function, status, m.serviceName).Inc()
	contractInvocationDuration.WithLabelValues(contract, function, m.serviceName).Observe(duration.Seconds())
}

// RecordEvent records a ledger event emission
func (m *MetricsCollector) RecordEvent(event string) {
	ledgerEventsTotal.WithLabelValues(event, m.serviceName).Inc()
}

// RecordDenial records a denied contract invocation
func (m *MetricsCollector) RecordDenial(contract, function string) {
	authorizationDenialsTotal.WithLabelValues(contract, function, m.serviceName).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}
