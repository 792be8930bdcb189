package orbit

import "math"

// Position is a body's apparent location and its rates of change.
// Angles are degrees, distances AU, speeds per day.
type Position struct {
	Longitude      float64 `json:"longitude" yaml:"longitude"`
	Latitude       float64 `json:"latitude" yaml:"latitude"`
	Distance       float64 `json:"distance" yaml:"distance"`
	LongitudeSpeed float64 `json:"longitudeSpeed" yaml:"longitudeSpeed"`
	LatitudeSpeed  float64 `json:"latitudeSpeed" yaml:"latitudeSpeed"`
	DistanceSpeed  float64 `json:"distanceSpeed" yaml:"distanceSpeed"`
}

// Rounded returns p at presentation precision: angles to 2 decimals,
// distance and speeds to 4.
func (p Position) Rounded() Position {
	lon := roundTo(p.Longitude, 2)
	if lon >= 360 {
		lon = 0
	}
	return Position{
		Longitude:      lon,
		Latitude:       roundTo(p.Latitude, 2),
		Distance:       roundTo(p.Distance, 4),
		LongitudeSpeed: roundTo(p.LongitudeSpeed, 4),
		LatitudeSpeed:  roundTo(p.LatitudeSpeed, 4),
		DistanceSpeed:  roundTo(p.DistanceSpeed, 4),
	}
}

func roundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	r := math.Round(x*scale) / scale
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
