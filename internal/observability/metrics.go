package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Metrics holds all Prometheus metric instruments for the journey service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Submission metrics
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
	RedirectMatches    *prometheus.CounterVec
	ImmediateExits     *prometheus.CounterVec

	// Calculation service metrics
	FiscaRequestsTotal  *prometheus.CounterVec
	FiscaRequestFailed  *prometheus.CounterVec
	CircuitBreakerState prometheus.Gauge

	// System metrics
	DefinitionsLoaded prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journey_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_submissions_total",
			Help: "Total number of journey submissions by outcome.",
		}, []string{"journey_id", "outcome"}),
		SubmissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journey_submission_duration_seconds",
			Help:    "End-to-end submission processing duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"journey_id"}),
		RedirectMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_redirect_matches_total",
			Help: "Total number of redirect rule matches.",
		}, []string{"journey_id"}),
		ImmediateExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_immediate_exits_total",
			Help: "Total number of immediate-exit detections.",
		}, []string{"journey_id"}),

		FiscaRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_openfisca_requests_total",
			Help: "Total number of OpenFisca requests.",
		}, []string{"endpoint", "status"}),
		FiscaRequestFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_openfisca_request_failures_total",
			Help: "Total number of failed OpenFisca requests.",
		}, []string{"endpoint"}),
		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_openfisca_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),

		DefinitionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_definitions_loaded",
			Help: "Number of loaded journey definitions.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SubmissionsTotal,
		m.SubmissionDuration,
		m.RedirectMatches,
		m.ImmediateExits,
		m.FiscaRequestsTotal,
		m.FiscaRequestFailed,
		m.CircuitBreakerState,
		m.DefinitionsLoaded,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordSubmission records a processed submission.
func (m *Metrics) RecordSubmission(journeyID, outcome string, duration time.Duration) {
	m.SubmissionsTotal.WithLabelValues(journeyID, outcome).Inc()
	m.SubmissionDuration.WithLabelValues(journeyID).Observe(duration.Seconds())
}

// RecordRedirectMatch records a matched redirect rule.
func (m *Metrics) RecordRedirectMatch(journeyID string) {
	m.RedirectMatches.WithLabelValues(journeyID).Inc()
}

// RecordImmediateExit records an immediate-exit detection.
func (m *Metrics) RecordImmediateExit(journeyID string) {
	m.ImmediateExits.WithLabelValues(journeyID).Inc()
}

// RecordFiscaRequest records an OpenFisca call outcome.
func (m *Metrics) RecordFiscaRequest(endpoint string, status int) {
	m.FiscaRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// RecordFiscaFailure records a failed OpenFisca call.
func (m *Metrics) RecordFiscaFailure(endpoint string) {
	m.FiscaRequestFailed.WithLabelValues(endpoint).Inc()
}

// SetCircuitBreakerState sets the circuit breaker gauge.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetCircuitBreakerState(state float64) {
	m.CircuitBreakerState.Set(state)
}

// SetDefinitionsLoaded sets the number of loaded journey definitions.
func (m *Metrics) SetDefinitionsLoaded(count float64) {
	m.DefinitionsLoaded.Set(count)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics
// using chi's route pattern (not the actual URL path) to avoid label
// cardinality explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
