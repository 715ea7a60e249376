package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Ledger interaction metrics
	ledgerQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_queries_total",
			Help: "Total number of read-only ledger calls",
		},
		[]string{"op", "status", "service"},
	)

	ledgerQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_query_duration_seconds",
			Help:    "Duration of read-only ledger calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"op", "service"},
	)

	ledgerCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_commands_total",
			Help: "Total number of state-mutating ledger commands",
		},
		[]string{"op", "status", "service"},
	)

	ledgerConfirmDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_command_confirm_duration_seconds",
			Help:    "Time from command submission to ledger confirmation in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"op", "service"},
	)

	// Event reconciler metrics
	eventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_received_total",
			Help: "Total number of ledger events received from backfill and live paths",
		},
		[]string{"kind", "source", "service"},
	)

	eventsDeduplicatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_deduplicated_total",
			Help: "Total number of ledger events dropped as duplicates",
		},
		[]string{"kind", "service"},
	)

	// System metrics
	componentErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "component_errors_total",
			Help: "Total number of component errors by kind",
		},
		[]string{"error_kind", "component", "service"},
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
		httpRequestsTotal,
		httpRequestDuration,
		ledgerQueriesTotal,
		ledgerQueryDuration,
		ledgerCommandsTotal,
		ledgerConfirmDuration,
		eventsReceivedTotal,
		eventsDeduplicatedTotal,
		componentErrors,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordLedgerQuery records a read-only ledger call
func (m *MetricsCollector) RecordLedgerQuery(op, status string, duration time.Duration) {
	ledgerQueriesTotal.WithLabelValues(op, status, m.serviceName).Inc()
	ledgerQueryDuration.WithLabelValues(op, m.serviceName).Observe(duration.Seconds())
}

// RecordLedgerCommand records a state-mutating ledger command
func (m *MetricsCollector) RecordLedgerCommand(op, status string, duration time.Duration) {
	ledgerCommandsTotal.WithLabelValues(op, status, m.serviceName).Inc()
	ledgerConfirmDuration.WithLabelValues(op, m.serviceName).Observe(duration.Seconds())
}

// RecordEventReceived records an event arriving from backfill or live paths
func (m *MetricsCollector) RecordEventReceived(kind, source string) {
	eventsReceivedTotal.WithLabelValues(kind, source, m.serviceName).Inc()
}

// RecordEventDeduplicated records an event dropped as a duplicate
func (m *MetricsCollector) RecordEventDeduplicated(kind string) {
	eventsDeduplicatedTotal.WithLabelValues(kind, m.serviceName).Inc()
}

// RecordComponentError records a component error by taxonomy kind
func (m *MetricsCollector) RecordComponentError(errorKind, component string) {
	componentErrors.WithLabelValues(errorKind, component, m.serviceName).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
