// Package roster provides the crew-trip roster data model shared by the
// extractor, classifier and aggregators.
package roster

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"roster_parser/internal/daterange"
)

// DayLetters lists the duty-day letters in order. A trip spans at most five
// duty days.
const DayLetters = "ABCDE"

// DayIndex returns the zero-based offset of a duty-day letter, or -1.
func DayIndex(letter string) int {
	if len(letter) != 1 {
		return -1
	}
	return strings.IndexByte(DayLetters, letter[0])
}

// Line is one line of roster text with its 1-based line number.
type Line struct {
	Number int
	Text   string
}

// Context is the month/year an analysis is anchored to. It is chosen by the
// caller, never inferred from the roster.
type Context struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Validate checks the context is usable for date resolution.
func (c Context) Validate() error {
	if c.Month < 1 || c.Month > 12 {
		return fmt.Errorf("month %d out of range 1-12", c.Month)
	}
	if c.Year < 1900 || c.Year > 9999 {
		return fmt.Errorf("year %d out of range", c.Year)
	}
	return nil
}

// FlightLeg is a single flight segment within a duty day.
type FlightLeg struct {
	Day        string `json:"day"`
	Deadhead   bool   `json:"deadhead,omitempty"`
	Flight     string `json:"flight,omitempty"`
	DepAirport string `json:"dep_airport"`
	DepTime    Clock  `json:"dep_time"`
	ArrAirport string `json:"arr_airport"`
	ArrTime    Clock  `json:"arr_time"`
	Line       int    `json:"line,omitempty"`
}

// DutyDay groups the legs flown under one duty-day letter, in operational
// order.
type DutyDay struct {
	Letter string      `json:"letter"`
	Legs   []FlightLeg `json:"legs"`
}

// Credit holds the TOTAL CREDIT line values in decimal hours.
type Credit struct {
	Total   decimal.NullDecimal `json:"tl"`
	Block   decimal.NullDecimal `json:"bl"`
	Overage decimal.NullDecimal `json:"cr"`
	FDP     decimal.NullDecimal `json:"fdp"`
	TAFB    decimal.NullDecimal `json:"tafb"`
}

// ParseHours parses a credit value. "6.28" is taken as decimal hours as
// written; "6:28" is hours and minutes and is converted.
func ParseHours(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err := decimal.NewFromString(h)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse hours %q: %w", s, err)
		}
		mins, err := decimal.NewFromString(m)
		if err != nil || len(m) != 2 {
			return decimal.Zero, fmt.Errorf("parse hours %q: bad minutes", s)
		}
		return hours.Add(mins.Div(decimal.NewFromInt(60))).Round(4), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse hours %q: %w", s, err)
	}
	return d, nil
}

// Trip is a parsed roster trip block.
type Trip struct {
	Number    string               `json:"number"`
	Weekdays  daterange.Weekdays   `json:"-"`
	Effective daterange.Expression `json:"effective"`
	Except    []daterange.MonthDay `json:"-"`
	Days      []DutyDay            `json:"days"`
	Credit    *Credit              `json:"credit,omitempty"`
	Context   Context              `json:"context"`
	StartLine int                  `json:"start_line"`
	EndLine   int                  `json:"end_line"`
	Issues    []Issue              `json:"issues,omitempty"`

	// DateErr is set when the EFFECTIVE or EXCEPT text failed to parse.
	DateErr error `json:"-"`
}

// HasDates reports whether the trip carried an EFFECTIVE expression.
func (t *Trip) HasDates() bool {
	return t.Effective.Raw != ""
}

// Legs returns every valid leg in operational order.
func (t *Trip) Legs() []FlightLeg {
	var legs []FlightLeg
	for _, d := range t.Days {
		legs = append(legs, d.Legs...)
	}
	return legs
}

// LegCount returns the number of valid legs.
func (t *Trip) LegCount() int {
	n := 0
	for _, d := range t.Days {
		n += len(d.Legs)
	}
	return n
}

// Day returns the duty day for a letter, creating it if absent.
func (t *Trip) Day(letter string) *DutyDay {
	for i := range t.Days {
		if t.Days[i].Letter == letter {
			return &t.Days[i]
		}
	}
	t.Days = append(t.Days, DutyDay{Letter: letter})
	return &t.Days[len(t.Days)-1]
}

// LastDay returns the duty day with the highest letter present.
func (t *Trip) LastDay() (DutyDay, bool) {
	best := -1
	for i, d := range t.Days {
		if best < 0 || DayIndex(d.Letter) > DayIndex(t.Days[best].Letter) {
			best = i
		}
	}
	if best < 0 {
		return DutyDay{}, false
	}
	return t.Days[best], true
}

// Contiguous reports whether the duty-day letters run A, B, C... without
// gaps.
func (t *Trip) Contiguous() bool {
	seen := make([]bool, len(DayLetters))
	for _, d := range t.Days {
		if i := DayIndex(d.Letter); i >= 0 {
			seen[i] = true
		}
	}
	last := -1
	for i, ok := range seen {
		if ok {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}

// AddIssue records a per-trip issue.
func (t *Trip) AddIssue(err error, line int) {
	t.Issues = append(t.Issues, NewIssue(err, t.Number, line))
}
