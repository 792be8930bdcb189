// Package julian converts calendar dates and instants to Julian Day numbers,
// the single time axis used by every orbital computation in gsync.
package julian

import (
	"math"
	"time"
)

// J2000 is the Julian Day of the J2000.0 epoch (January 1, 2000, 12:00 UTC).
const J2000 = 2451545.0

// unixEpoch is the Julian Day of 1970-01-01T00:00:00Z.
const unixEpoch = 2440587.5

const msPerDay = 86400000.0

// ToJulianDay converts a Gregorian calendar date plus a fractional hour of
// day into a Julian Day. Month and day are assumed to be valid; callers
// validate before converting.
func ToJulianDay(year, month, day int, hourFraction float64) float64 {
	return DayNumber(year, month, day) + (hourFraction-12)/24.0
}

// DayNumber returns the integer Julian Day Number of a Gregorian date, which
// labels the day starting at that date's noon.
func DayNumber(year, month, day int) float64 {
	a := math.Floor(float64(14-month) / 12)
	y := float64(year) + 4800 - a
	m := float64(month) + 12*a - 3

	jdn := float64(day) + math.Floor((153*m+2)/5) + 365*y + math.Floor(y/4)
	return jdn - math.Floor(y/100) + math.Floor(y/400) - 32045
}

// AtNoon returns the Julian Day for 12:00 UTC on the given date, the
// astronomical day boundary every ephemeris request is normalized to.
// The result is always a whole number.
func AtNoon(year, month, day int) float64 {
	return ToJulianDay(year, month, day, 12)
}

// DateAtNoon is AtNoon for the UTC calendar date of t.
func DateAtNoon(t time.Time) float64 {
	y, m, d := t.UTC().Date()
	return AtNoon(y, int(m), d)
}

// FromTime returns the continuous Julian Day of an instant at millisecond
// resolution, as the live clock computes it.
func FromTime(t time.Time) float64 {
	return float64(t.UnixMilli())/msPerDay + unixEpoch
}

// DaysSinceJ2000 returns the signed number of days between jd and J2000.0.
func DaysSinceJ2000(jd float64) float64 {
	return jd - J2000
}
