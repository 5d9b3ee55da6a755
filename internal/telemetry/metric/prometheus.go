package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

const namespace = "securestore"

// Registry holds all application metrics.
//
// It implements the engine's Observer interface, so it can be handed to
// the storage and cipher services directly.
type Registry struct {
	reg *prometheus.Registry

	// Engine metrics
	OperationsTotal       *prometheus.CounterVec
	OperationDuration     *prometheus.HistogramVec
	IntegrityFailures     *prometheus.CounterVec
	KeyDerivations        prometheus.Counter
	KeyDerivationDuration prometheus.Histogram
	AuditRecords          prometheus.Gauge

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the Go runtime and process
// collectors plus the SecureStore metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by type, classification and result.",
		}, []string{"operation", "classification", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		IntegrityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "integrity_failures_total",
			Help:      "Reads rejected by decryption or checksum verification.",
		}, []string{"classification"}),
		KeyDerivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "key_derivations_total",
			Help:      "PBKDF2 key derivations performed.",
		}),
		KeyDerivationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "key_derivation_duration_seconds",
			Help:      "PBKDF2 key derivation latency.",
			Buckets:   []float64{.01, .025, .05, .1, .2, .4, .8, 1.6},
		}),
		AuditRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "records",
			Help:      "Records held in the in-memory audit trail.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.OperationsTotal,
		r.OperationDuration,
		r.IntegrityFailures,
		r.KeyDerivations,
		r.KeyDerivationDuration,
		r.AuditRecords,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Registerer returns the underlying registerer for components that
// register their own collectors (e.g. the badger backend).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// OperationCompleted records one engine operation.
func (r *Registry) OperationCompleted(op domain.Operation, c domain.Classification, success bool, elapsed time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.OperationsTotal.WithLabelValues(string(op), c.String(), result).Inc()
	if elapsed > 0 {
		r.OperationDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
	}
}

// IntegrityFailure counts a rejected read. The key is not recorded.
func (r *Registry) IntegrityFailure(_ string, c domain.Classification) {
	r.IntegrityFailures.WithLabelValues(c.String()).Inc()
}

// KeyDerived records one key derivation.
func (r *Registry) KeyDerived(elapsed time.Duration) {
	r.KeyDerivations.Inc()
	r.KeyDerivationDuration.Observe(elapsed.Seconds())
}

// AuditSize records the audit trail length.
func (r *Registry) AuditSize(n int) {
	r.AuditRecords.Set(float64(n))
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
