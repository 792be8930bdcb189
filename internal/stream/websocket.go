package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tau/gsync/internal/httputil"
	"github.com/tau/gsync/internal/metrics"
)

// HandleWS serves the sync stream over a WebSocket.
// GET /api/v1/ws/sync?step=1
//
// The server only writes; inbound messages are read and discarded so that
// control frames (close, pong) are processed.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	step, err := parseStep(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ip, release, ok := h.admit(w, r, "ws")
	if !ok {
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		metrics.IncStreamErrors("upgrade_error")
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	pongWait := 2 * h.config.KeepaliveInterval
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(v any) error {
		conn.SetWriteDeadline(time.Now().Add(writeWindow))
		if err := conn.WriteJSON(v); err != nil {
			return err
		}
		metrics.IncStreamMessages()
		return nil
	}

	if err := send(h.metadata(step)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("websocket send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	pingTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-closed:
			return

		case t := <-ticker.C:
			frame, err := h.buildFrame(t)
			if err != nil {
				metrics.IncStreamErrors("compute_error")
				h.logger.Warn("websocket frame error", "remote_ip", ip, "error", err)
				continue
			}
			if err := send(frame); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("websocket send error", "remote_ip", ip, "error", err)
				return
			}

		case <-pingTicker.C:
			deadline := time.Now().Add(writeWindow)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("websocket ping error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}
