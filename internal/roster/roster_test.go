package roster

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    Clock
		wantErr bool
	}{
		{"0830", 510, false},
		{"0000", 0, false},
		{"2359", 1439, false},
		{"0539*", 339, false},
		{"10:30", 630, false},
		{"07.50", 470, false},
		{"2400", 0, true},
		{"1260", 0, true},
		{"830", 0, true},
		{"08300", 0, true},
		{"AB12", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Errorf("ParseClock(%q) error = %v, want ErrInvalidTime", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLegTime(t *testing.T) {
	for input, want := range map[string]Clock{"0830": 510, "0539*": 339, " 2359 ": 1439} {
		got, err := ParseLegTime(input)
		if err != nil || got != want {
			t.Errorf("ParseLegTime(%q) = %v, %v, want %v", input, got, err, want)
		}
	}
	for _, input := range []string{"8:30", "08:30", "10.00", "0830.", "830", "08300", "2400", "12a4", ""} {
		if _, err := ParseLegTime(input); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("ParseLegTime(%q) error = %v, want ErrInvalidTime", input, err)
		}
	}
}

func TestClockAdd(t *testing.T) {
	tests := []struct {
		start Clock
		delta int
		want  string
	}{
		{NewClock(0, 30), -60, "23:30"},
		{NewClock(23, 30), 45, "00:15"},
		{NewClock(10, 0), -60, "09:00"},
		{NewClock(12, 0), 1440, "12:00"},
	}
	for _, tt := range tests {
		if got := tt.start.Add(tt.delta).String(); got != tt.want {
			t.Errorf("%s.Add(%d) = %s, want %s", tt.start, tt.delta, got, tt.want)
		}
	}
}

func TestClockJSON(t *testing.T) {
	b, err := json.Marshal(NewClock(5, 39))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `"05:39"` {
		t.Errorf("Marshal = %s, want \"05:39\"", b)
	}

	for _, input := range []string{`"05:39"`, `"0539"`, `539`} {
		var c Clock
		if err := json.Unmarshal([]byte(input), &c); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", input, err)
		}
		if c != NewClock(5, 39) {
			t.Errorf("Unmarshal(%s) = %s, want 05:39", input, c)
		}
	}

	var c Clock
	if err := json.Unmarshal([]byte(`"2500"`), &c); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("Unmarshal(2500) error = %v, want ErrInvalidTime", err)
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"6.28", "6.28"},
		{"16.28", "16.28"},
		{"0.15", "0.15"},
		{"6:30", "6.5"},
		{"12", "12"},
	}
	for _, tt := range tests {
		got, err := ParseHours(tt.input)
		if err != nil {
			t.Fatalf("ParseHours(%q) error: %v", tt.input, err)
		}
		if got.String() != tt.want {
			t.Errorf("ParseHours(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
	if _, err := ParseHours("x.y"); err == nil {
		t.Error("expected error for x.y")
	}
}

func TestTripHelpers(t *testing.T) {
	trip := &Trip{Number: "1234"}
	trip.Day("A").Legs = append(trip.Day("A").Legs, FlightLeg{Day: "A", DepAirport: "ATL", ArrAirport: "MCO"})
	trip.Day("B").Legs = append(trip.Day("B").Legs, FlightLeg{Day: "B", DepAirport: "MCO", ArrAirport: "ATL"})

	if n := trip.LegCount(); n != 2 {
		t.Errorf("LegCount = %d, want 2", n)
	}
	last, ok := trip.LastDay()
	if !ok || last.Letter != "B" {
		t.Errorf("LastDay = %q, %v, want B", last.Letter, ok)
	}
	if !trip.Contiguous() {
		t.Error("expected contiguous days")
	}

	trip.Day("D")
	if trip.Contiguous() {
		t.Error("expected gap A,B,D to be non-contiguous")
	}
	if trip.HasDates() {
		t.Error("trip without EFFECTIVE should not report dates")
	}

	trip.AddIssue(ErrMissingCreditData, 12)
	if len(trip.Issues) != 1 || trip.Issues[0].Kind != IssueMissingCredit || trip.Issues[0].Trip != "1234" {
		t.Errorf("unexpected issues: %+v", trip.Issues)
	}
}

func TestContextValidate(t *testing.T) {
	if err := (Context{Month: 1, Year: 2026}).Validate(); err != nil {
		t.Errorf("valid context error: %v", err)
	}
	if err := (Context{Month: 0, Year: 2026}).Validate(); err == nil {
		t.Error("expected error for month 0")
	}
	if err := (Context{Month: 12, Year: 0}).Validate(); err == nil {
		t.Error("expected error for year 0")
	}
}
