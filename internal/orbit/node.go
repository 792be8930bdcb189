package orbit

import "github.com/tau/gsync/internal/julian"

// NodePeriod is the retrograde cycle of the lunar node in days (~18.6 years).
const NodePeriod = 6798.383

// NodeDailyMotion is the node's constant longitude rate in degrees per day.
const NodeDailyMotion = -360 / NodePeriod

// LunarNode models the Moon's ascending node as a linear regression of
// longitude from J2000.0, where it is taken to sit at 0°.
type LunarNode struct{}

// Position implements Model. Latitude is zero because the node lies on the
// ecliptic by definition; distance is a fixed placeholder.
func (LunarNode) Position(jd float64) Position {
	days := julian.DaysSinceJ2000(jd)
	return Position{
		Longitude:      normalizeDegrees(days * NodeDailyMotion),
		Latitude:       0,
		Distance:       1.0,
		LongitudeSpeed: NodeDailyMotion,
		LatitudeSpeed:  0,
		DistanceSpeed:  0,
	}
}
