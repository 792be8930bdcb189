// Package ephemeris assembles per-body positions for a calendar date.
//
// A request is a DD.MM.YYYY string plus optional observer coordinates. The
// date is normalized to noon UTC, every tracked body is run through the
// orbit engine, and results are rounded for presentation. When coordinates
// are given, a synthetic Earth entry echoes them and the observer's
// sidereal time is attached.
package ephemeris

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tau/gsync/internal/julian"
	"github.com/tau/gsync/internal/metrics"
	"github.com/tau/gsync/internal/observer"
	"github.com/tau/gsync/internal/orbit"
)

// EarthName is the key of the synthetic observer entry.
const EarthName = "Earth"

// Result is the output of one ephemeris request.
type Result struct {
	Date      string                    `json:"date" yaml:"date"`
	JulianDay float64                   `json:"julianDay" yaml:"julianDay"`
	Positions map[string]orbit.Position `json:"positions" yaml:"positions"`
	Observer  *observer.Sidereal        `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// Service computes ephemeris results. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	logger   *slog.Logger
	position func(orbit.Body, float64) orbit.Position
}

// NewService creates a Service backed by the orbit engine.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger:   logger,
		position: orbit.PositionOf,
	}
}

// Compute validates dateStr and coords and returns positions for every
// tracked body at noon UTC of that date.
func (s *Service) Compute(dateStr string, coords *observer.Coordinates) (*Result, error) {
	start := time.Now()

	d, err := ParseDate(dateStr)
	if err != nil {
		metrics.RecordEphemeris("invalid_date", time.Since(start))
		return nil, err
	}
	if coords != nil {
		if err := coords.Validate(); err != nil {
			metrics.RecordEphemeris("invalid_coordinates", time.Since(start))
			return nil, fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
		}
	}

	res, err := s.compute(d, coords)
	if err != nil {
		metrics.RecordEphemeris("failure", time.Since(start))
		s.logger.Error("ephemeris computation failed",
			"component", "ephemeris",
			"date", dateStr,
			"error", err,
		)
		return nil, err
	}

	metrics.RecordEphemeris("ok", time.Since(start))
	s.logger.Debug("ephemeris computed",
		"component", "ephemeris",
		"date", dateStr,
		"julian_day", res.JulianDay,
		"bodies", len(res.Positions),
	)
	return res, nil
}

// ComputeDate is Compute for an already validated date and no observer.
func (s *Service) ComputeDate(d Date) (*Result, error) {
	return s.compute(d, nil)
}

// compute turns any panic from the engine into a ComputationError.
func (s *Service) compute(d Date, coords *observer.Coordinates) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &ComputationError{Err: fmt.Errorf("%v", r)}
		}
	}()

	jd := julian.AtNoon(d.Year, d.Month, d.Day)

	bodies := orbit.Bodies()
	positions := make(map[string]orbit.Position, len(bodies)+1)
	for _, b := range bodies {
		positions[b.String()] = s.position(b, jd).Rounded()
	}

	res = &Result{
		Date:      d.String(),
		JulianDay: jd,
		Positions: positions,
	}

	if coords != nil {
		positions[EarthName] = orbit.Position{
			Longitude: coords.Longitude,
			Latitude:  coords.Latitude,
		}.Rounded()

		noon := time.Date(d.Year, time.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC)
		sidereal := observer.SiderealAt(noon, *coords).Rounded()
		res.Observer = &sidereal
	}

	return res, nil
}
