package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tau/gsync/internal/ephemeris"
	"github.com/tau/gsync/internal/httputil"
	"github.com/tau/gsync/internal/julian"
	"github.com/tau/gsync/internal/observer"
	"github.com/tau/gsync/internal/orbit"
	"github.com/tau/gsync/internal/synctoken"
)

const errDateRequired = "Date parameter is required (format: DD.MM.YYYY)"

type endpoint struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

type indexResponse struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Endpoints   []endpoint `json:"endpoints"`
	Version     string     `json:"version"`
}

var endpoints = []endpoint{
	{"/api/ephemeris", "Get astronomical data"},
	{"/api/health", "Health check"},
	{"/api/security/status", "Security status"},
	{"/api/v1/stream/sync", "Live sync frames (Server-Sent Events)"},
	{"/api/v1/ws/sync", "Live sync frames (WebSocket)"},
}

// indexHandler handles GET /api.
func indexHandler(version string) http.HandlerFunc {
	resp := indexResponse{
		Name:        "G-sync API",
		Description: "API for astronomical timepiece",
		Endpoints:   endpoints,
		Version:     version,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

type ephemerisResponse struct {
	Date             string                    `json:"date"`
	Coordinates      *observer.Coordinates     `json:"coordinates"`
	AstronomicalData map[string]orbit.Position `json:"astronomicalData"`
	JulianDay        float64                   `json:"julianDay"`
	Observer         *observer.Sidereal        `json:"observer,omitempty"`
}

// ephemerisHandler handles GET /api/ephemeris?date=DD.MM.YYYY[&lat=..&lon=..].
func ephemerisHandler(logger *slog.Logger, svc *ephemeris.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		date := q.Get("date")
		if date == "" {
			httputil.WriteError(w, http.StatusBadRequest, errDateRequired)
			return
		}
		if !ephemeris.MatchesDateFormat(date) {
			httputil.WriteError(w, http.StatusBadRequest, capitalize(ephemeris.ErrInvalidDateFormat.Error()))
			return
		}

		coords, err := observer.ParseCoordinates(q.Get("lat"), q.Get("lon"))
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, capitalize(err.Error()))
			return
		}

		res, err := svc.Compute(date, coords)
		if err != nil {
			writeComputeError(w, logger, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, ephemerisResponse{
			Date:             date,
			Coordinates:      coords,
			AstronomicalData: res.Positions,
			JulianDay:        res.JulianDay,
			Observer:         res.Observer,
		})
	}
}

func writeComputeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var compErr *ephemeris.ComputationError
	switch {
	case errors.Is(err, ephemeris.ErrInvalidDateFormat):
		httputil.WriteError(w, http.StatusBadRequest, capitalize(ephemeris.ErrInvalidDateFormat.Error()))
	case errors.Is(err, ephemeris.ErrInvalidCoordinates):
		httputil.WriteError(w, http.StatusBadRequest, capitalize(err.Error()))
	case errors.As(err, &compErr):
		httputil.WriteError(w, http.StatusInternalServerError, capitalize(compErr.Error()))
	default:
		logger.Error("unexpected ephemeris error", "component", "api", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

type securityStatusResponse struct {
	Status        string  `json:"status"`
	Token         string  `json:"token"`
	TokenValue    float64 `json:"tokenValue"`
	Timestamp     string  `json:"timestamp"`
	SecurityLevel string  `json:"securityLevel"`
}

// securityStatusHandler handles GET /api/security/status. The token is
// cosmetic: it is derived from the current Julian Day and secures nothing.
func securityStatusHandler(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := now().UTC()
		tok := synctoken.At(julian.FromTime(t))
		httputil.WriteJSON(w, http.StatusOK, securityStatusResponse{
			Status:        "secure",
			Token:         tok.Label(),
			TokenValue:    tok.Value,
			Timestamp:     t.Format(time.RFC3339Nano),
			SecurityLevel: "quantum",
		})
	}
}

// capitalize upper-cases an ASCII first letter for client-facing messages.
func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
