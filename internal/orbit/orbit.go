// Package orbit approximates planetary positions from fixed Keplerian
// elements.
//
// This is not an ephemeris. Longitude is the raw true anomaly with no
// argument of perihelion or node rotation applied, and latitude is
// sin(ν) scaled by an inclination factor. Only the radius follows the
// physical two-body conic. Outputs are meant to drive visualizations.
package orbit

import (
	"math"

	"github.com/soniakeys/unit"
)

// Model computes a body's position for a Julian Day.
// Implementations are Kepler and LunarNode.
type Model interface {
	Position(jd float64) Position
}

// ModelFor returns the motion model for b. Unknown ids fall back to a
// Kepler model over DefaultElements.
func ModelFor(b Body) Model {
	if b == Node {
		return LunarNode{}
	}
	el, _ := ElementsOf(b)
	return Kepler{Elements: el}
}

// PositionOf returns b's unrounded position at Julian Day jd.
func PositionOf(b Body, jd float64) Position {
	return ModelFor(b).Position(jd)
}

// normalizeDegrees maps an angle into [0, 360).
func normalizeDegrees(deg float64) float64 {
	d := unit.PMod(deg, 360)
	if d >= 360 {
		d = 0
	}
	return d
}

const radToDeg = 180 / math.Pi
