package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsync_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gsync_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	ephemerisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsync_ephemeris_computations_total",
			Help: "Ephemeris computations by outcome (ok, invalid_date, invalid_coordinates, failure).",
		},
		[]string{"result"},
	)

	ephemerisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gsync_ephemeris_duration_seconds",
			Help:    "Time spent computing one ephemeris result.",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsync_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		},
		[]string{"path"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsync_stream_connections_total",
			Help: "Stream connection events.",
		},
		[]string{"transport", "event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gsync_streams_active",
			Help: "Currently open sync streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsync_stream_messages_total",
			Help: "Sync frames sent to stream clients.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsync_stream_bytes_total",
			Help: "Bytes written to stream clients.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsync_stream_errors_total",
			Help: "Stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		ephemerisTotal,
		ephemerisDurationSeconds,
		rateLimitedTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// knownRoutes are recorded under their own path label.
var knownRoutes = map[string]bool{
	"/":                    true,
	"/api":                 true,
	"/api/ephemeris":       true,
	"/api/health":          true,
	"/api/security/status": true,
	"/api/v1/stream/sync":  true,
	"/api/v1/ws/sync":      true,
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
}

// normalizeRoute collapses unknown paths into "other" so scanners cannot
// blow up label cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE keeps working behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack forwards to the wrapped writer for WebSocket upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(rw.ResponseWriter).Hijack()
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// RecordEphemeris records one ephemeris computation and its outcome.
func RecordEphemeris(result string, d time.Duration) {
	ephemerisTotal.WithLabelValues(result).Inc()
	ephemerisDurationSeconds.Observe(d.Seconds())
}

// IncRateLimited counts a request rejected by the rate limiter.
func IncRateLimited(path string) {
	rateLimitedTotal.WithLabelValues(normalizeRoute(path)).Inc()
}

// IncStreamConnections counts a connect or disconnect on the given transport (sse, ws).
func IncStreamConnections(transport, event string) {
	streamConnectionsTotal.WithLabelValues(transport, event).Inc()
}

func IncStreamsActive() { streamsActive.Inc() }

func DecStreamsActive() { streamsActive.Dec() }

func IncStreamMessages() { streamMessagesTotal.Inc() }

func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

// IncStreamErrors counts a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}
