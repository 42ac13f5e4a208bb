package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the collection of all Prometheus metrics.
// The dashboard's decorative counters are deliberately absent: they are
// random numbers, not measurements.
type Metrics struct {
	// Standard metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Scan business metrics
	ScansStarted     *prometheus.CounterVec
	ScansFinished    *prometheus.CounterVec
	FixturesInjected *prometheus.CounterVec
	ScansInProgress  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates all collectors and registers them with reg. A nil reg
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.ScansStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_started_total",
			Help: "Total number of simulated scans started",
		},
		[]string{"mode"},
	)

	m.ScansFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_finished_total",
			Help: "Total number of simulated scans that reached a terminal state",
		},
		[]string{"status"},
	)

	m.FixturesInjected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_fixtures_injected_total",
			Help: "Total number of canned findings appended to scans",
		},
		[]string{"type"},
	)

	m.ScansInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scans_in_progress",
			Help: "Number of simulated scans currently running",
		},
	)

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ScansStarted,
		m.ScansFinished,
		m.FixturesInjected,
		m.ScansInProgress,
	)

	return m
}

// Middleware for tracking HTTP requests
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Label by route pattern once a mux has matched, so scan IDs stay out of the label set
		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter is a wrapper to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events working behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ScanStarted records a new run. Safe on a nil receiver.
func (m *Metrics) ScanStarted(mode string) {
	if m == nil {
		return
	}
	m.ScansStarted.WithLabelValues(mode).Inc()
	m.ScansInProgress.Inc()
}

// ScanFinished records a run reaching status.
func (m *Metrics) ScanFinished(status string) {
	if m == nil {
		return
	}
	m.ScansFinished.WithLabelValues(status).Inc()
	m.ScansInProgress.Dec()
}

// FixtureInjected records one canned finding of the given type.
func (m *Metrics) FixtureInjected(vulnType string) {
	if m == nil {
		return
	}
	m.FixturesInjected.WithLabelValues(vulnType).Inc()
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
