package ephemeris

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateFormat = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`)

// Date is a validated calendar date from a DD.MM.YYYY string.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String formats d as DD.MM.YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	y, m, day := t.UTC().Date()
	return Date{Year: y, Month: int(m), Day: day}
}

// MatchesDateFormat reports whether s has the DD.MM.YYYY shape, without
// checking that it names a real calendar day.
func MatchesDateFormat(s string) bool {
	return dateFormat.MatchString(s)
}

// ParseDate parses a DD.MM.YYYY string (1-2 digit day and month, 4-digit
// year) and rejects dates that do not exist, such as 31.02.2024.
func ParseDate(s string) (Date, error) {
	if !MatchesDateFormat(s) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}

	parts := strings.Split(s, ".")
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])

	// time.Date normalizes overflow (Feb 31 -> Mar 2), so a real date is
	// one that survives the round trip unchanged.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return Date{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDateFormat, s)
	}

	return Date{Year: year, Month: month, Day: day}, nil
}
