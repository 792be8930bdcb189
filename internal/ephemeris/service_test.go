package ephemeris

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tau/gsync/internal/julian"
	"github.com/tau/gsync/internal/observer"
	"github.com/tau/gsync/internal/orbit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var allBodies = []string{"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter", "Saturn", "Node"}

func TestComputeWithoutCoordinates(t *testing.T) {
	svc := NewService(testLogger())

	res, err := svc.Compute("01.01.2000", nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if res.JulianDay != julian.J2000 {
		t.Errorf("julian day = %.1f, want %.1f", res.JulianDay, julian.J2000)
	}
	if len(res.Positions) != len(allBodies) {
		t.Errorf("got %d positions, want %d", len(res.Positions), len(allBodies))
	}
	for _, name := range allBodies {
		if _, ok := res.Positions[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	if _, ok := res.Positions[EarthName]; ok {
		t.Error("Earth present without coordinates")
	}
	if res.Observer != nil {
		t.Error("observer block present without coordinates")
	}

	node := res.Positions["Node"]
	if node.Latitude != 0.0 || node.Distance != 1.0 {
		t.Errorf("node = %+v, want latitude 0 and distance 1", node)
	}
}

// TestComputeRoundsAtBoundary verifies the service rounds the engine output
// and nothing else changes it.
func TestComputeRoundsAtBoundary(t *testing.T) {
	svc := NewService(testLogger())
	res, err := svc.Compute("29.02.2024", nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	jd := julian.AtNoon(2024, 2, 29)
	for _, b := range orbit.Bodies() {
		want := orbit.PositionOf(b, jd).Rounded()
		if got := res.Positions[b.String()]; got != want {
			t.Errorf("%s = %+v, want %+v", b, got, want)
		}
	}
}

func TestComputeWithCoordinates(t *testing.T) {
	svc := NewService(testLogger())
	coords := &observer.Coordinates{Latitude: 40.7128, Longitude: -74.006}

	res, err := svc.Compute("18.10.2026", coords)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	earth, ok := res.Positions[EarthName]
	if !ok {
		t.Fatal("Earth missing with coordinates")
	}
	want := orbit.Position{Longitude: -74.01, Latitude: 40.71}
	if earth != want {
		t.Errorf("Earth = %+v, want %+v", earth, want)
	}
	if res.Observer == nil {
		t.Fatal("observer block missing")
	}
	if res.Observer.Zenith.Declination != 40.7128 {
		t.Errorf("zenith declination = %v, want 40.7128", res.Observer.Zenith.Declination)
	}
}

func TestComputeInvalidDate(t *testing.T) {
	svc := NewService(testLogger())
	for _, in := range []string{"31.02.2024", "2024-02-01", "1.1.24"} {
		_, err := svc.Compute(in, nil)
		if !errors.Is(err, ErrInvalidDateFormat) {
			t.Errorf("Compute(%q) err = %v, want ErrInvalidDateFormat", in, err)
		}
	}
}

func TestComputeInvalidCoordinates(t *testing.T) {
	svc := NewService(testLogger())
	_, err := svc.Compute("01.01.2000", &observer.Coordinates{Latitude: 95, Longitude: 0})
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
	if !errors.Is(err, observer.ErrLatitudeRange) {
		t.Errorf("err = %v, want it to wrap ErrLatitudeRange", err)
	}
}

// TestComputeWrapsPanics verifies an engine panic surfaces as a
// ComputationError rather than crashing the caller.
func TestComputeWrapsPanics(t *testing.T) {
	svc := NewService(testLogger())
	svc.position = func(orbit.Body, float64) orbit.Position {
		panic("engine exploded")
	}

	res, err := svc.Compute("01.01.2000", nil)
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	var ce *ComputationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ComputationError", err)
	}
	if want := "failed to calculate celestial data: engine exploded"; err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestComputeDeterministic(t *testing.T) {
	svc := NewService(testLogger())
	a, err := svc.ComputeDate(Date{2031, 7, 4})
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.ComputeDate(Date{2031, 7, 4})
	if err != nil {
		t.Fatal(err)
	}
	for name, p := range a.Positions {
		if b.Positions[name] != p {
			t.Errorf("%s differs between runs: %+v vs %+v", name, p, b.Positions[name])
		}
	}
}
