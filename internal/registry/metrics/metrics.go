// Package metrics provides Prometheus metrics for registry lookups and SOAP calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes recorded for every SOAP round trip.
const (
	OutcomeSuccess        = "success"
	OutcomeHTTPError      = "http_error"
	OutcomeTimeout        = "timeout"
	OutcomeTransportError = "transport_error"
)

// Lookup outcomes recorded once per handled request.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupInvalid  = "invalid"
	LookupError    = "error"
)

// Metrics contains all registry metrics.
type Metrics struct {
	SOAPCallsTotal          *prometheus.CounterVec   // SOAP calls by operation and outcome
	SOAPCallDurationSeconds *prometheus.HistogramVec // SOAP round trip latency by operation
	LookupsTotal            *prometheus.CounterVec   // Lookups by outcome
	ReportsTotal            *prometheus.CounterVec   // Full reports requested by report name
	PKDEntries              prometheus.Histogram     // PKD entries returned per lookup
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a Metrics instance registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SOAPCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regon_soap_calls_total",
			Help: "Total number of SOAP calls to the BIR registry by operation and outcome",
		}, []string{"operation", "outcome"}),

		SOAPCallDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regon_soap_call_duration_seconds",
			Help:    "Duration of SOAP calls to the BIR registry by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),

		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regon_lookups_total",
			Help: "Total number of NIP lookups by outcome",
		}, []string{"outcome"}),

		ReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regon_full_reports_total",
			Help: "Total number of full reports requested by report name",
		}, []string{"report"}),

		PKDEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "regon_pkd_entries",
			Help:    "Number of PKD entries returned per successful lookup",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
}

// RecordSOAPCall records one SOAP round trip.
func (m *Metrics) RecordSOAPCall(operation, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SOAPCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.SOAPCallDurationSeconds.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordLookup records the outcome of a lookup.
func (m *Metrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordReport records a full report request.
func (m *Metrics) RecordReport(report string) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(report).Inc()
}

// ObservePKDEntries records how many PKD entries a lookup returned.
func (m *Metrics) ObservePKDEntries(n int) {
	if m == nil {
		return
	}
	m.PKDEntries.Observe(float64(n))
}
