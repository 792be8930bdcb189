// Package synctoken derives the dashboard's cosmetic "sync token" from the
// current Julian Day. The token is a blend of sine and cosine harmonics of
// the day fraction. It is decorative: nothing verifies it and it carries no
// secret.
package synctoken

import (
	"fmt"
	"math"
)

// Phi is the golden ratio used to weight the second harmonic pair.
const Phi = 1.618033988749895

// primes are the harmonic multipliers of the four terms.
var primes = [4]float64{7, 11, 13, 17}

// planetary rates scale the day fraction into each term's modulation.
const (
	mercuryRate = 4.152
	venusRate   = 1.624
	earthRate   = 1.0
	marsRate    = 0.532
)

// Vector is a 3-component point.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Token is the full set of values derived for one Julian Day.
type Token struct {
	JulianDay    float64    `json:"julianDay"`
	Harmonics    [4]float64 `json:"harmonics"`
	Value        float64    `json:"value"`
	Position     Vector     `json:"position"`
	Signature    float64    `json:"signature"`
	PenroseSeed  float64    `json:"penroseSeed"`
	HilbertDepth int        `json:"hilbertDepth"`
	Rotation     float64    `json:"rotation"`
}

// At computes the token for Julian Day jd.
func At(jd float64) Token {
	n := math.Mod(jd, 1)
	w := n * 2 * math.Pi

	mod := func(rate float64) float64 { return 1 + math.Sin(n*rate)*0.2 }

	p1 := math.Sin(w*primes[0]) * mod(mercuryRate)
	p2 := math.Cos(w*primes[1]) * mod(venusRate)
	p3 := math.Sin(w*primes[2]) * mod(earthRate)
	p4 := math.Cos(w*primes[3]) * mod(marsRate)

	value := p1*p2*0.5 + p3*p4*(1/Phi)*0.5

	return Token{
		JulianDay:    jd,
		Harmonics:    [4]float64{p1, p2, p3, p4},
		Value:        value,
		Position:     Vector{X: p1 * p4, Y: p2 * p3, Z: value},
		Signature:    signature(p1, p2, p3, p4),
		PenroseSeed:  math.Abs(p1 * p3 * Phi),
		HilbertDepth: 3 + int(math.Floor(math.Abs(value)*2)),
		Rotation:     n*360 + p1*20,
	}
}

// signature is the harmonic ratio, forced to 0 where it would be
// non-finite so the token always encodes as JSON.
func signature(p1, p2, p3, p4 float64) float64 {
	s := (p1 + p2) / (p3 + p4 + 0.00001)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// Label renders the token in the dashboard's display form, Æ-DDDD-DDDD-HHHH.
// The groups are taken from the harmonics so the label is reproducible for
// a given Julian Day.
func (t Token) Label() string {
	g1 := 1000 + int(math.Abs(t.Harmonics[0]*t.Harmonics[1])*1e6)%9000
	g2 := 1000 + int(math.Abs(t.Harmonics[2]*t.Harmonics[3])*1e6)%9000
	g3 := int(math.Abs(t.Value)*1e9) % 0xFFFF
	return fmt.Sprintf("Æ-%d-%d-%04X", g1, g2, g3)
}

// MaxAbsValue bounds |Value| for any input.
func MaxAbsValue() float64 {
	const peak = 1.2 * 1.2 // each harmonic is at most 1.2 in magnitude
	return 0.5*peak + 0.5*peak/Phi
}
