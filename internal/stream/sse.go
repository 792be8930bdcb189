// Package stream pushes live "sync" frames to the clock frontend over
// Server-Sent Events (GET /api/v1/stream/sync) or WebSocket
// (GET /api/v1/ws/sync). Each frame carries the current Julian Day, the
// cosmetic sync token, and the positions for the current UTC date.
//
// SSE message format:
//
//	data: {"type":"sync","t":"2026-10-18T09:30:00Z","julianDay":2461332.895833,"token":{...},"positions":{...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","server_time":"...","step_seconds":1,"bodies":["Sun",...]}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
package stream

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tau/gsync/internal/ephemeris"
	"github.com/tau/gsync/internal/httputil"
	"github.com/tau/gsync/internal/julian"
	"github.com/tau/gsync/internal/metrics"
	"github.com/tau/gsync/internal/orbit"
	"github.com/tau/gsync/internal/synctoken"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxTotal           int           // Global stream cap (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive interval (default: 30s).
	TrustProxy         bool          // Use X-Forwarded-For for the per-IP limit.
	AllowedOrigin      string        // WebSocket origin allowed; "*" or "" allows any.
}

// Handler manages sync stream connections.
type Handler struct {
	service  *ephemeris.Service
	config   Config
	limiter  *streamLimiter
	upgrader websocket.Upgrader
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a new streaming handler.
func NewHandler(service *ephemeris.Service, config Config, logger *slog.Logger) *Handler {
	if config.MaxTotal <= 0 {
		config.MaxTotal = 1000
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	h := &Handler{
		service: service,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
		now:     time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.config.AllowedOrigin == "" || h.config.AllowedOrigin == "*" {
		return true
	}
	return origin == h.config.AllowedOrigin
}

// parseStep reads the step query parameter in seconds (1-60, default 1).
func parseStep(r *http.Request) (time.Duration, error) {
	v := r.URL.Query().Get("step")
	if v == "" {
		return time.Second, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 60 {
		return 0, fmt.Errorf("invalid step parameter, must be 1-60")
	}
	return time.Duration(n) * time.Second, nil
}

// admit applies the per-IP concurrent stream limit. On success the returned
// release func must be called when the stream ends.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, transport string) (string, func(), bool) {
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"component", "stream",
			"transport", transport,
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return ip, nil, false
	}

	metrics.IncStreamConnections(transport, "connect")
	metrics.IncStreamsActive()
	start := h.now()
	h.logger.Info("stream connected",
		"component", "stream",
		"transport", transport,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	release := func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections(transport, "disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"component", "stream",
			"transport", transport,
			"remote_ip", ip,
			"duration_seconds", int(h.now().Sub(start).Seconds()),
		)
	}
	return ip, release, true
}

// HandleSSE serves the SSE sync stream.
// GET /api/v1/stream/sync?step=1
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	step, err := parseStep(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ip, release, ok := h.admit(w, r, "sse")
	if !ok {
		return
	}
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &sseClient{
		w:       w,
		flusher: flusher,
		rc:      rc,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		return
	}

	if err := c.sendJSON(h.metadata(step)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			frame, err := h.buildFrame(t)
			if err != nil {
				metrics.IncStreamErrors("compute_error")
				h.logger.Warn("stream frame error", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendJSON(frame); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func (h *Handler) metadata(step time.Duration) metadataMessage {
	bodies := make([]string, 0, len(orbit.Bodies()))
	for _, b := range orbit.Bodies() {
		bodies = append(bodies, b.String())
	}
	return metadataMessage{
		Type:        "metadata",
		ServerTime:  h.now().UTC().Format(time.RFC3339),
		StepSeconds: int(step / time.Second),
		Bodies:      bodies,
	}
}

// buildFrame assembles the sync frame for instant t.
func (h *Handler) buildFrame(t time.Time) (syncFrame, error) {
	res, err := h.service.ComputeDate(ephemeris.DateOf(t))
	if err != nil {
		return syncFrame{}, err
	}

	jd := julian.FromTime(t)
	tok := synctoken.At(jd)

	return syncFrame{
		Type:      "sync",
		T:         t.UTC().Format(time.RFC3339),
		JulianDay: jd,
		Token: tokenPayload{
			Label:        tok.Label(),
			Value:        tok.Value,
			Rotation:     tok.Rotation,
			PenroseSeed:  tok.PenroseSeed,
			HilbertDepth: tok.HilbertDepth,
		},
		Positions: res.Positions,
	}, nil
}

// Stream message payload types.

type metadataMessage struct {
	Type        string   `json:"type"`
	ServerTime  string   `json:"server_time"`
	StepSeconds int      `json:"step_seconds"`
	Bodies      []string `json:"bodies"`
}

type syncFrame struct {
	Type      string                    `json:"type"`
	T         string                    `json:"t"`
	JulianDay float64                   `json:"julianDay"`
	Token     tokenPayload              `json:"token"`
	Positions map[string]orbit.Position `json:"positions"`
}

type tokenPayload struct {
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	Rotation     float64 `json:"rotation"`
	PenroseSeed  float64 `json:"penroseSeed"`
	HilbertDepth int     `json:"hilbertDepth"`
}
