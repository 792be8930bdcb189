package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEphemerisJSON(t *testing.T) {
	out, err := run(t, "1.1.2000", "--format", "json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var res struct {
		Date      string                    `json:"date"`
		JulianDay float64                   `json:"julianDay"`
		Positions map[string]map[string]any `json:"positions"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Date != "01.01.2000" || res.JulianDay != 2451545 {
		t.Errorf("date/jd = %s/%v", res.Date, res.JulianDay)
	}
	if len(res.Positions) != 8 {
		t.Errorf("got %d positions, want 8", len(res.Positions))
	}
}

func TestEphemerisYAMLWithObserver(t *testing.T) {
	out, err := run(t, "15.06.2024", "--lat", "-33.87", "--lon", "151.21", "--format", "yaml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var res map[string]any
	if err := yaml.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	positions := res["positions"].(map[string]any)
	if _, ok := positions["Earth"]; !ok {
		t.Error("Earth missing with coordinates")
	}
	if _, ok := res["observer"]; !ok {
		t.Error("observer block missing")
	}
}

func TestEphemerisText(t *testing.T) {
	out, err := run(t, "15.06.2024", "--lat", "10", "--lon", "20")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// date line, header, 8 bodies, Earth, observer line
	if len(lines) != 12 {
		t.Fatalf("got %d lines, want 12:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "date 15.06.2024") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Sun") || !strings.Contains(lines[10], "Earth") {
		t.Errorf("unexpected body order:\n%s", out)
	}
}

func TestEphemerisErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad date", []string{"2024-06-15"}},
		{"impossible date", []string{"30.02.2024"}},
		{"bad latitude", []string{"15.06.2024", "--lat", "100", "--lon", "0"}},
		{"half coordinates", []string{"15.06.2024", "--lon", "0"}},
		{"bad format", []string{"15.06.2024", "--format", "xml"}},
		{"too many args", []string{"1.1.2000", "2.1.2000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--jd", "2451545.25", "--format", "json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var tok tokenView
	if err := json.Unmarshal([]byte(out), &tok); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if tok.JulianDay != 2451545.25 {
		t.Errorf("julianDay = %v", tok.JulianDay)
	}
	if !strings.HasPrefix(tok.Label, "Æ-") {
		t.Errorf("label = %q", tok.Label)
	}

	again, _ := run(t, "token", "--jd", "2451545.25", "--format", "json")
	if again != out {
		t.Error("token output is not deterministic for a fixed JD")
	}
}

func TestBodiesCommand(t *testing.T) {
	out, err := run(t, "bodies", "--format", "json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var rows []bodyView
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(rows) != 8 {
		t.Fatalf("got %d bodies, want 8", len(rows))
	}
	if rows[0].Name != "Sun" || rows[0].Period != 365.26 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[7].Name != "Node" || rows[7].Model != "node-regression" {
		t.Errorf("last row = %+v", rows[7])
	}
}
