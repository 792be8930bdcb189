package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tau/gsync/internal/httputil"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// exemptPaths are always public regardless of auth configuration.
var exemptPaths = map[string]bool{
	"/healthz":    true,
	"/readyz":     true,
	"/metrics":    true,
	"/api":        true,
	"/api/health": true,
}

// queryTokenPrefixes may carry the token as ?access_token=, since browsers
// cannot set headers on EventSource or WebSocket handshakes.
var queryTokenPrefixes = []string{
	"/api/v1/stream/",
	"/api/v1/ws/",
}

func isExempt(r *http.Request) bool {
	return r.Method == http.MethodOptions || exemptPaths[r.URL.Path]
}

// requestToken returns the presented token, or "" if none was sent.
func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return ""
		}
		return token
	}
	for _, prefix := range queryTokenPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return r.URL.Query().Get("access_token")
		}
	}
	return ""
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on non-exempt paths when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isExempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			token := requestToken(r)
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
