package staffing

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"roster_parser/internal/classifier"
	"roster_parser/internal/extractor"
	"roster_parser/internal/roster"
)

func classify(t *testing.T, ctx roster.Context, lines ...string) []classifier.ClassifiedTrip {
	t.Helper()
	res := extractor.Extract(strings.Join(lines, "\n"), ctx)
	return classifier.ClassifyAll(res.Trips, classifier.DefaultAliases, classifier.DefaultThresholds())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandToCalendar(t *testing.T) {
	trips := classify(t, roster.Context{Month: 1, Year: 2026},
		"#1234 WE FR EFFECTIVE JAN21-JAN. 28",
		"A 1 ATL 0800 MCO 1000",
		"B 2 MCO 0800 ATL 1000",
		"-----",
		"#5 TH EFFECTIVE JAN22 ONLY",
		"A 3 BOS 0700 ATL 0900",
		"-----",
	)

	cal := ExpandToCalendar(trips)
	if cal.Unplaced != 0 {
		t.Errorf("Unplaced = %d, want 0", cal.Unplaced)
	}

	// Trip 1234 starts Jan 21, 23, 28 and flies two days each; trip 5 flies Jan 22.
	want := map[string]int{
		"2026-01-21": 1,
		"2026-01-22": 2,
		"2026-01-23": 1,
		"2026-01-24": 1,
		"2026-01-28": 1,
		"2026-01-29": 1,
	}
	if len(cal.Days) != len(want) {
		t.Fatalf("got %d days, want %d", len(cal.Days), len(want))
	}
	for i, d := range cal.Days {
		if i > 0 && !cal.Days[i-1].Date.Before(d.Date) {
			t.Errorf("days not ascending at %s", d.DateString)
		}
		if d.PilotCount != want[d.DateString] {
			t.Errorf("%s pilot count = %d, want %d", d.DateString, d.PilotCount, want[d.DateString])
		}
		if d.PilotCount != len(d.Entries) {
			t.Errorf("%s count %d != %d entries", d.DateString, d.PilotCount, len(d.Entries))
		}
	}
	if cal.TotalPilotDays() != 7 {
		t.Errorf("TotalPilotDays = %d, want 7", cal.TotalPilotDays())
	}

	day, ok := cal.Lookup(date(2026, 1, 22))
	if !ok {
		t.Fatal("Lookup(2026-01-22) missing")
	}
	got := map[Entry]bool{}
	for _, e := range day.Entries {
		got[e] = true
	}
	if !got[Entry{"1234", "B"}] || !got[Entry{"5", "A"}] {
		t.Errorf("entries = %+v, want 1234/B and 5/A", day.Entries)
	}

	if _, ok := cal.Lookup(date(2026, 1, 25)); ok {
		t.Error("Lookup(2026-01-25) should be empty")
	}
}

func TestExceptDatesNotPlaced(t *testing.T) {
	trips := classify(t, roster.Context{Month: 1, Year: 2026},
		"#1234 WE FR EFFECTIVE JAN21-JAN. 28",
		"EXCEPT JAN21",
		"A 1 ATL 0800 MCO 1000",
		"B 2 MCO 0800 ATL 1000",
	)
	cal := ExpandToCalendar(trips)
	for _, d := range []time.Time{date(2026, 1, 21), date(2026, 1, 22)} {
		if _, ok := cal.Lookup(d); ok {
			t.Errorf("excepted start %s should place no duty days", d.Format(DateLayout))
		}
	}
	if cal.TotalPilotDays() != 4 {
		t.Errorf("TotalPilotDays = %d, want 4", cal.TotalPilotDays())
	}
}

func TestYearBoundary(t *testing.T) {
	trips := classify(t, roster.Context{Month: 12, Year: 2026},
		"#9 WE EFFECTIVE DEC31-JAN.09",
		"A 1 SEA 0800 SLC 1000",
		"B 2 SLC 0800 SEA 1000",
	)
	cal := ExpandToCalendar(trips)
	// Dec 31 2026 is a Thursday, so Wednesday Jan 6 2027 is the only start.
	if len(cal.Days) != 2 {
		t.Fatalf("got %d days, want 2", len(cal.Days))
	}
	if cal.Days[0].DateString != "2027-01-06" || cal.Days[1].DateString != "2027-01-07" {
		t.Errorf("days = %s, %s, want 2027-01-06, 2027-01-07", cal.Days[0].DateString, cal.Days[1].DateString)
	}
}

func TestUnplaced(t *testing.T) {
	trips := classify(t, roster.Context{Month: 1, Year: 2026},
		"#1 MO",
		"A 1 ATL 0800 MCO 1000",
		"-----",
		"#2 MO EFFECTIVE FEB30 ONLY",
		"A 1 ATL 0800 MCO 1000",
		"-----",
		"#3 MO EFFECTIVE JAN05 ONLY",
		"A 1 ATL 9999 MCO 1000",
		"-----",
	)
	cal := ExpandToCalendar(trips)
	if cal.Unplaced != 3 {
		t.Errorf("Unplaced = %d, want 3", cal.Unplaced)
	}
	if len(cal.Days) != 0 {
		t.Errorf("got %d days, want 0", len(cal.Days))
	}
}

func TestCalendarJSON(t *testing.T) {
	trips := classify(t, roster.Context{Month: 1, Year: 2026},
		"#5 TH EFFECTIVE JAN22 ONLY",
		"A 3 BOS 0700 ATL 0900",
	)
	b, err := json.Marshal(ExpandToCalendar(trips))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var decoded Calendar
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	day, ok := decoded.Lookup(date(2026, 1, 22))
	if !ok || day.PilotCount != 1 || day.Entries[0].TripNumber != "5" {
		t.Errorf("decoded Lookup = %+v, %v", day, ok)
	}
}
