package ephemeris

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "01.01.2000", want: Date{2000, 1, 1}},
		{in: "1.1.2000", want: Date{2000, 1, 1}},
		{in: "29.02.2024", want: Date{2024, 2, 29}},
		{in: "31.12.1999", want: Date{1999, 12, 31}},
		{in: "31.02.2024", wantErr: true},
		{in: "29.02.2023", wantErr: true},
		{in: "31.04.2025", wantErr: true},
		{in: "00.01.2000", wantErr: true},
		{in: "15.13.2000", wantErr: true},
		{in: "15.00.2000", wantErr: true},
		{in: "1.1.99", wantErr: true},
		{in: "001.01.2000", wantErr: true},
		{in: "2000-01-01", wantErr: true},
		{in: "01.01.2000 ", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDateFormat) {
					t.Fatalf("ParseDate(%q) err = %v, want ErrInvalidDateFormat", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDateString(t *testing.T) {
	if got := (Date{Year: 2024, Month: 3, Day: 7}).String(); got != "07.03.2024" {
		t.Errorf("String() = %q, want 07.03.2024", got)
	}
}

func TestDateOf(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	got := DateOf(time.Date(2024, 12, 31, 23, 30, 0, 0, loc))
	if want := (Date{2025, 1, 1}); got != want {
		t.Errorf("DateOf = %+v, want %+v", got, want)
	}
}
