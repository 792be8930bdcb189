package orbit

import (
	"math"

	"github.com/soniakeys/unit"
)

// keplerIterations is fixed rather than tolerance driven so the output of
// every request is reproducible. Accuracy degrades for high eccentricities.
const keplerIterations = 5

// SolveKepler solves E - e·sin(E) = M for the eccentric anomaly E by
// Newton-Raphson, starting from E = M.
func SolveKepler(meanAnomaly, e float64) float64 {
	E := meanAnomaly
	for i := 0; i < keplerIterations; i++ {
		E = E - (E-e*math.Sin(E)-meanAnomaly)/(1-e*math.Cos(E))
	}
	return E
}

// Anomalies holds the intermediate angles of a Kepler solve, in radians.
type Anomalies struct {
	Mean      float64
	Eccentric float64
	True      float64
}

// Kepler is the generic two-body model used for every body except the Node.
type Kepler struct {
	Elements Elements
}

// Anomalies computes the mean, eccentric and true anomaly at jd. The mean
// anomaly wraps with jd mod Period.
func (k Kepler) Anomalies(jd float64) Anomalies {
	p := k.Elements.Period
	e := k.Elements.Eccentricity

	M := 2 * math.Pi * math.Mod(jd, p) / p
	E := SolveKepler(M, e)
	nu := 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(E/2))

	return Anomalies{Mean: M, Eccentric: E, True: nu}
}

// Position implements Model.
func (k Kepler) Position(jd float64) Position {
	el := k.Elements
	e := el.Eccentricity
	a := el.SemiMajorAxis
	nu := k.Anomalies(jd).True

	// Speeds follow from the position formulas by the chain rule.
	meanMotion := 2 * math.Pi / el.Period
	speedFactor := math.Sqrt(1.0 / a)
	lonRate := speedFactor * (1 + e*math.Cos(nu)) * math.Sqrt(1.0/(1-e*e))
	lonSpeed := lonRate * radToDeg * meanMotion

	return Position{
		Longitude:      normalizeDegrees(unit.Angle(nu).Deg()),
		Latitude:       math.Sin(nu) * el.InclinationFactor,
		Distance:       a * (1 - e*e) / (1 + e*math.Cos(nu)),
		LongitudeSpeed: lonSpeed,
		LatitudeSpeed:  lonSpeed * math.Cos(nu) * el.InclinationFactor / radToDeg,
		DistanceSpeed:  a * e * math.Sin(nu) * lonSpeed / radToDeg,
	}
}
