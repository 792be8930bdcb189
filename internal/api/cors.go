package api

import "net/http"

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, Authorization, Origin, X-Requested-With, Accept"
)

// corsMiddleware applies the single-origin CORS policy and answers
// preflight requests. An origin of "*" (or empty) allows any origin.
// Credentials are only advertised for a concrete origin.
func corsMiddleware(origin string, credentials bool) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			h := w.Header()

			if reqOrigin != "" {
				switch {
				case origin == "*" && credentials:
					// A wildcard cannot be combined with credentials; reflect instead.
					h.Set("Access-Control-Allow-Origin", reqOrigin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Add("Vary", "Origin")
				case origin == "*":
					h.Set("Access-Control-Allow-Origin", "*")
				case reqOrigin == origin:
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
					if credentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
