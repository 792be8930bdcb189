package api

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tau/gsync/internal/auth"
	"github.com/tau/gsync/internal/ephemeris"
	"github.com/tau/gsync/internal/health"
	"github.com/tau/gsync/internal/httputil"
	"github.com/tau/gsync/internal/metrics"
	"github.com/tau/gsync/internal/ratelimit"
	"github.com/tau/gsync/internal/stream"
)

// Options configures the HTTP server.
type Options struct {
	Addr       string
	Version    string
	Production bool
	CORSOrigin string
	TrustProxy bool
	Auth       auth.Config
	RateLimit  ratelimit.Config
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	limiter    *ratelimit.IPRateLimiter
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, logger *slog.Logger, svc *ephemeris.Service, probe *health.Probe, streams *stream.Handler) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", probe.Healthz)
	mux.HandleFunc("GET /readyz", probe.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api", indexHandler(opts.Version))
	mux.HandleFunc("GET /api/health", probe.Status)
	mux.HandleFunc("GET /api/ephemeris", ephemerisHandler(logger, svc))
	mux.HandleFunc("GET /api/security/status", securityStatusHandler(time.Now))

	if streams != nil {
		mux.HandleFunc("GET /api/v1/stream/sync", streams.HandleSSE)
		mux.HandleFunc("GET /api/v1/ws/sync", streams.HandleWS)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})

	rateLimit, limiter := ratelimit.Middleware(opts.RateLimit, logger)

	// Build middleware chain: metrics -> logging -> cors -> auth -> rate limit -> mux.
	var handler http.Handler = mux
	handler = rateLimit(handler)
	handler = auth.Middleware(opts.Auth)(handler)
	handler = corsMiddleware(opts.CORSOrigin, !opts.Production)(handler)
	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Limiter returns the per-IP request limiter so the caller can evict idle entries.
func (s *Server) Limiter() *ratelimit.IPRateLimiter {
	return s.limiter
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(sr.ResponseWriter).Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
