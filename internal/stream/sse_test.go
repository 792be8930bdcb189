package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tau/gsync/internal/ephemeris"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}
}

func testHandler(cfg Config) *Handler {
	return NewHandler(ephemeris.NewService(testLogger()), cfg, testLogger())
}

// readDataLines returns the payloads of all "data:" lines in an SSE body.
func readDataLines(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			out = append(out, data)
		}
	}
	return out
}

// TestBuildFrame verifies the sync frame payload structure.
func TestBuildFrame(t *testing.T) {
	h := testHandler(testConfig())
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	frame, err := h.buildFrame(at)
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"type", "t", "julianDay", "token", "positions"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if decoded["type"] != "sync" {
		t.Errorf("type = %v, want sync", decoded["type"])
	}
	if decoded["t"] != "2026-10-18T09:30:00Z" {
		t.Errorf("t = %v", decoded["t"])
	}

	// 09:30 UTC is 2.5 hours before noon.
	wantJD := 2461332.0 - 2.5/24
	if got := frame.JulianDay; got < wantJD-1e-6 || got > wantJD+1e-6 {
		t.Errorf("julianDay = %f, want %f", got, wantJD)
	}

	token := decoded["token"].(map[string]any)
	label, _ := token["label"].(string)
	if !strings.HasPrefix(label, "Æ-") {
		t.Errorf("token label = %q, want Æ- prefix", label)
	}

	positions := decoded["positions"].(map[string]any)
	for _, name := range []string{"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter", "Saturn", "Node"} {
		if _, ok := positions[name]; !ok {
			t.Errorf("positions missing %s", name)
		}
	}
	if _, ok := positions["Earth"]; ok {
		t.Error("positions must not contain Earth without coordinates")
	}
}

// TestMetadataMessageJSON verifies metadata message structure.
func TestMetadataMessageJSON(t *testing.T) {
	h := testHandler(testConfig())
	h.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }

	data, err := json.Marshal(h.metadata(5 * time.Second))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["type"] != "metadata" {
		t.Errorf("type = %v, want metadata", decoded["type"])
	}
	if decoded["server_time"] != "2026-10-18T00:00:00Z" {
		t.Errorf("server_time = %v", decoded["server_time"])
	}
	if decoded["step_seconds"] != float64(5) {
		t.Errorf("step_seconds = %v, want 5", decoded["step_seconds"])
	}
	bodies := decoded["bodies"].([]any)
	if len(bodies) != 8 || bodies[0] != "Sun" || bodies[7] != "Node" {
		t.Errorf("bodies = %v", bodies)
	}
}

// TestSSEMessageFormat verifies the SSE wire format.
func TestSSEMessageFormat(t *testing.T) {
	h := testHandler(testConfig())

	req := httptest.NewRequest("GET", "/api/v1/stream/sync?step=1", nil)
	req.RemoteAddr = "10.0.0.1:12345"

	// Let the handler emit metadata and at least one frame, then cancel.
	ctx, cancel := context.WithTimeout(req.Context(), 1500*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	h.HandleSSE(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: ") {
		t.Errorf("body should start with a retry line, got %q", body[:min(len(body), 20)])
	}

	lines := readDataLines(t, body)
	if len(lines) < 2 {
		t.Fatalf("got %d data lines, want at least 2 (metadata + sync)", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first message: %v", err)
	}
	if first["type"] != "metadata" {
		t.Errorf("first message type = %v, want metadata", first["type"])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second message: %v", err)
	}
	if second["type"] != "sync" {
		t.Errorf("second message type = %v, want sync", second["type"])
	}

	// Each message is terminated by a blank line.
	if !strings.Contains(body, "\n\ndata: ") {
		t.Error("messages are not separated by blank lines")
	}

	if c := h.limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("limiter count after disconnect = %d, want 0", c)
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(2, 1000)

	if !limiter.acquire("10.0.0.1") {
		t.Error("first acquire should succeed")
	}
	if !limiter.acquire("10.0.0.1") {
		t.Error("second acquire should succeed")
	}
	if limiter.acquire("10.0.0.1") {
		t.Error("third acquire should fail (limit=2)")
	}

	// Different IP should succeed.
	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should succeed")
	}

	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	// Releasing an unknown IP is a no-op.
	limiter.release("10.9.9.9")
	if limiter.total != 3 {
		t.Errorf("total = %d, want 3", limiter.total)
	}
}

// TestRateLimitingGlobalCap verifies the global cap applies across IPs.
func TestRateLimitingGlobalCap(t *testing.T) {
	limiter := newStreamLimiter(10, 2)

	if !limiter.acquire("10.0.0.1") || !limiter.acquire("10.0.0.2") {
		t.Fatal("acquires under the global cap should succeed")
	}
	if limiter.acquire("10.0.0.3") {
		t.Error("acquire over the global cap should fail")
	}
}

// TestRateLimitingConcurrent verifies the limiter under concurrent access.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				limiter.release("10.0.0.1")
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	h := testHandler(Config{
		MaxConcurrentPerIP: 1,
		KeepaliveInterval:  30 * time.Second,
	})

	// Hold the first connection open.
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/sync", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			// Signal ready after short delay to allow acquire.
			time.Sleep(50 * time.Millisecond)
			close(ready)
			// Hold connection for a bit.
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		h.HandleSSE(w, req)
	}()

	<-ready

	// Second connection from same IP should get 429.
	req := httptest.NewRequest("GET", "/api/v1/stream/sync", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	h.HandleSSE(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
}

// TestInvalidQueryParams verifies error responses for bad step values.
func TestInvalidQueryParams(t *testing.T) {
	h := testHandler(testConfig())

	tests := []struct {
		name  string
		query string
	}{
		{"step zero", "?step=0"},
		{"step negative", "?step=-1"},
		{"step too large", "?step=61"},
		{"step not a number", "?step=fast"},
		{"step fractional", "?step=1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, route := range []struct {
				path   string
				handle http.HandlerFunc
			}{
				{"/api/v1/stream/sync", h.HandleSSE},
				{"/api/v1/ws/sync", h.HandleWS},
			} {
				req := httptest.NewRequest("GET", route.path+tt.query, nil)
				req.RemoteAddr = "10.0.0.1:12345"
				w := httptest.NewRecorder()
				route.handle(w, req)

				if w.Code != http.StatusBadRequest {
					t.Errorf("%s: status = %d, want %d", route.path, w.Code, http.StatusBadRequest)
				}
				if !strings.Contains(w.Body.String(), `"error"`) {
					t.Errorf("%s: body = %q, want JSON error", route.path, w.Body.String())
				}
			}
		})
	}
}

// TestParseStepDefault verifies the default step.
func TestParseStepDefault(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/stream/sync", nil)
	step, err := parseStep(req)
	if err != nil {
		t.Fatalf("parseStep: %v", err)
	}
	if step != time.Second {
		t.Errorf("step = %v, want 1s", step)
	}
}

// TestKeepaliveFormat verifies the keepalive comment format.
func TestKeepaliveFormat(t *testing.T) {
	w := httptest.NewRecorder()
	c := &sseClient{
		w:       w,
		flusher: w,
		rc:      http.NewResponseController(w),
		logger:  testLogger(),
	}

	if err := c.sendKeepalive(); err != nil {
		t.Fatalf("sendKeepalive: %v", err)
	}

	if got := w.Body.String(); got != ":\n\n" {
		t.Errorf("keepalive = %q, want %q", got, ":\n\n")
	}
	if c.bytesSent != 3 {
		t.Errorf("bytesSent = %d, want 3", c.bytesSent)
	}
}
