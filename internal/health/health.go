package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Probe serves liveness, readiness and the public API health check.
type Probe struct {
	ready atomic.Bool
	now   func() time.Time
}

// NewProbe returns a Probe that reports not ready until SetReady(true).
func NewProbe() *Probe {
	return &Probe{now: time.Now}
}

// SetReady flips the readiness state, e.g. during graceful shutdown.
func (p *Probe) SetReady(ready bool) {
	p.ready.Store(ready)
}

// Healthz returns 200 "ok\n" unconditionally.
func (p *Probe) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" once the server accepts traffic and 503
// otherwise.
func (p *Probe) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !p.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}

// Status is GET /api/health: {"status":"ok","timestamp":"<RFC3339>"}.
func (p *Probe) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": p.now().UTC().Format(time.RFC3339Nano),
	})
}
