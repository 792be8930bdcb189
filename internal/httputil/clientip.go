package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP address from the request.
// With trustProxy set, the first X-Forwarded-For entry and then X-Real-IP
// win over RemoteAddr. Only trust them behind a reverse proxy that
// overwrites those headers.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := firstForwarded(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstForwarded(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
