package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tau/gsync/internal/metrics"
)

// writeWindow is how long a single write may block before the connection is dropped.
const writeWindow = 30 * time.Second

// sseClient manages a single SSE connection's write operations.
type sseClient struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

func (c *sseClient) extendDeadline() {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeWindow)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
}

// sendJSON marshals v as JSON and sends it as an SSE "data:" message.
func (c *sseClient) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	c.extendDeadline()
	n, err := fmt.Fprintf(c.w, "data: %s\n\n", data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.flusher.Flush()
	c.messagesSent++
	c.bytesSent += int64(n)
	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(n))

	return nil
}

// sendRetry tells the browser how long to wait before reconnecting.
func (c *sseClient) sendRetry(ms int) error {
	c.extendDeadline()
	n, err := fmt.Fprintf(c.w, "retry: %d\n\n", ms)
	if err != nil {
		return fmt.Errorf("retry write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	return nil
}

// sendKeepalive sends an SSE comment line to keep the connection alive.
func (c *sseClient) sendKeepalive() error {
	c.extendDeadline()
	n, err := fmt.Fprint(c.w, ":\n\n")
	if err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}

	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))

	return nil
}
