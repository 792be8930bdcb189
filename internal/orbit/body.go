package orbit

import "strings"

// Body identifies a tracked celestial body or pseudo-body.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	// Node is the Moon's ascending (true) node. It is an ecliptic crossing
	// point rather than a physical body and has its own motion model.
	Node
)

var bodyNames = [...]string{
	Sun:     "Sun",
	Moon:    "Moon",
	Mercury: "Mercury",
	Venus:   "Venus",
	Mars:    "Mars",
	Jupiter: "Jupiter",
	Saturn:  "Saturn",
	Node:    "Node",
}

// String returns the body's display name, or "Unknown" for ids outside the table.
func (b Body) String() string {
	if b < 0 || int(b) >= len(bodyNames) {
		return "Unknown"
	}
	return bodyNames[b]
}

// Bodies returns every tracked body in response order.
func Bodies() []Body {
	return []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Node}
}

// ParseBody resolves a body by name, ignoring case.
func ParseBody(name string) (Body, bool) {
	for i, n := range bodyNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Body(i), true
		}
	}
	return 0, false
}

// Elements are the fixed orbital elements of one body.
type Elements struct {
	Period            float64 // orbital period, days
	Eccentricity      float64 // 0 <= e < 1
	InclinationFactor float64 // latitude excursion scale, degrees
	SemiMajorAxis     float64 // AU
}

// DefaultElements describe the degenerate circular unit orbit used for ids
// missing from the table.
var DefaultElements = Elements{
	Period:            365.26,
	Eccentricity:      0,
	InclinationFactor: 0,
	SemiMajorAxis:     1.0,
}

// elementsTable is never mutated; ElementsOf hands out copies.
var elementsTable = map[Body]Elements{
	Sun:     {Period: 365.26, Eccentricity: 0.0167, InclinationFactor: 0, SemiMajorAxis: 1.0},
	Moon:    {Period: 27.32, Eccentricity: 0.0549, InclinationFactor: 5.14, SemiMajorAxis: 0.00257},
	Mercury: {Period: 87.97, Eccentricity: 0.2056, InclinationFactor: 7.0, SemiMajorAxis: 0.387},
	Venus:   {Period: 224.7, Eccentricity: 0.0068, InclinationFactor: 3.39, SemiMajorAxis: 0.723},
	Mars:    {Period: 686.98, Eccentricity: 0.0934, InclinationFactor: 1.85, SemiMajorAxis: 1.524},
	Jupiter: {Period: 4332.59, Eccentricity: 0.0484, InclinationFactor: 1.31, SemiMajorAxis: 5.203},
	Saturn:  {Period: 10759.22, Eccentricity: 0.0539, InclinationFactor: 2.49, SemiMajorAxis: 9.537},
}

// ElementsOf returns the orbital elements for b. The boolean is false when b
// has no Keplerian elements, in which case DefaultElements is returned.
func ElementsOf(b Body) (Elements, bool) {
	el, ok := elementsTable[b]
	if !ok {
		return DefaultElements, false
	}
	return el, true
}
