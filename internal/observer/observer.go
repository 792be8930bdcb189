// Package observer validates observer coordinates and derives the sidereal
// time and zenith for an observer on a given date.
package observer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/unit"
)

var (
	ErrNotNumeric     = errors.New("invalid coordinates format")
	ErrIncomplete     = errors.New("latitude and longitude must be supplied together")
	ErrLatitudeRange  = errors.New("latitude must be between -90 and 90 degrees")
	ErrLongitudeRange = errors.New("longitude must be between -180 and 180 degrees")
)

// Coordinates is a geographic observer position in degrees, longitude east positive.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate checks both components against their geographic ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return ErrNotNumeric
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return ErrLatitudeRange
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// ParseCoordinates parses optional lat/lon query values. It returns nil
// coordinates and no error when both are empty.
func ParseCoordinates(lat, lon string) (*Coordinates, error) {
	lat = strings.TrimSpace(lat)
	lon = strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		return nil, nil
	}

	la, errLat := parseDegrees(lat)
	lo, errLon := parseDegrees(lon)
	if (lat != "" && errLat != nil) || (lon != "" && errLon != nil) {
		return nil, ErrNotNumeric
	}
	if lat == "" || lon == "" {
		return nil, ErrIncomplete
	}

	c := &Coordinates{Latitude: la, Longitude: lo}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// Zenith is the equatorial direction straight above the observer, in degrees.
type Zenith struct {
	RightAscension float64 `json:"rightAscension" yaml:"rightAscension"`
	Declination    float64 `json:"declination" yaml:"declination"`
}

// Sidereal holds the sidereal angles for an observer at an instant, in degrees.
type Sidereal struct {
	GMST              float64 `json:"gmst" yaml:"gmst"`
	LocalSiderealTime float64 `json:"localSiderealTime" yaml:"localSiderealTime"`
	Zenith            Zenith  `json:"zenith" yaml:"zenith"`
}

// SiderealAt computes Greenwich mean sidereal time (IAU-82) at t and the
// observer's local sidereal time and zenith.
func SiderealAt(t time.Time, c Coordinates) Sidereal {
	t = t.UTC()
	gmstRad := satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	gmst := unit.PMod(unit.Angle(gmstRad).Deg(), 360)
	lst := unit.PMod(gmst+c.Longitude, 360)

	return Sidereal{
		GMST:              gmst,
		LocalSiderealTime: lst,
		Zenith: Zenith{
			RightAscension: lst,
			Declination:    c.Latitude,
		},
	}
}

// Rounded returns s with every angle rounded to 4 decimals.
func (s Sidereal) Rounded() Sidereal {
	r := func(x float64) float64 { return math.Round(x*1e4) / 1e4 }
	return Sidereal{
		GMST:              r(s.GMST),
		LocalSiderealTime: r(s.LocalSiderealTime),
		Zenith: Zenith{
			RightAscension: r(s.Zenith.RightAscension),
			Declination:    r(s.Zenith.Declination),
		},
	}
}
