// Package extractor splits roster text into trip blocks and builds Trip
// records from the line parsers' results.
// This package is storage-agnostic; callers decide what to do with the trips.
package extractor

import (
	"fmt"
	"strings"
	"sync"

	"roster_parser/internal/parsers/credit"
	"roster_parser/internal/parsers/except"
	"roster_parser/internal/parsers/header"
	"roster_parser/internal/parsers/leg"
	"roster_parser/internal/parsers/separator"
	"roster_parser/internal/registry"
	"roster_parser/internal/roster"
)

// Result is the outcome of extracting one roster file.
type Result struct {
	Trips   []*roster.Trip `json:"trips"`
	Skipped int            `json:"skipped_blocks"`
	Issues  []roster.Issue `json:"issues,omitempty"`
	Lines   int            `json:"lines"`
}

// NoTrips reports the "no trips found" condition.
func (r *Result) NoTrips() bool { return len(r.Trips) == 0 }

var sortOnce sync.Once

// Extract parses roster text using the default registry.
func Extract(text string, ctx roster.Context) *Result {
	sortOnce.Do(registry.Default().Sort)
	return ExtractWith(registry.Default(), text, ctx)
}

// ExtractWith parses roster text, dispatching each line through reg.
func ExtractWith(reg *registry.Registry, text string, ctx roster.Context) *Result {
	e := &extraction{ctx: ctx, result: &Result{}}

	for _, line := range Lines(text) {
		e.result.Lines = line.Number
		e.line(reg, line)
	}
	e.close()

	return e.result
}

// Lines splits text into numbered lines. Blank lines are kept so numbering
// matches the source.
func Lines(text string) []roster.Line {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	lines := make([]roster.Line, 0, len(parts))
	for i, p := range parts {
		lines = append(lines, roster.Line{Number: i + 1, Text: strings.TrimRight(p, "\r")})
	}
	return lines
}

// block is the trip currently being assembled.
type block struct {
	trip     *roster.Trip
	header   bool
	legLines int
	curDay   string
	lastLine int
}

type extraction struct {
	ctx    roster.Context
	result *Result
	open   *block
}

func (e *extraction) line(reg *registry.Registry, line roster.Line) {
	trimmed := strings.TrimSpace(line.Text)
	if trimmed == "" {
		return
	}

	switch r := reg.Dispatch(&line).(type) {
	case *separator.Result:
		e.close()

	case *header.Result:
		e.close()
		b := e.start(line.Number)
		b.header = true
		b.trip.Number = r.Number
		b.trip.Weekdays = r.Weekdays
		b.trip.Effective = r.Effective
		b.trip.Except = r.Except
		if r.Err != nil {
			b.trip.DateErr = r.Err
			b.trip.AddIssue(r.Err, line.Number)
		}

	case *except.Result:
		b := e.ensure(line.Number)
		b.trip.Except = append(b.trip.Except, r.Dates...)
		if r.Err != nil {
			if b.trip.DateErr == nil && len(r.Dates) == 0 {
				b.trip.DateErr = r.Err
			}
			b.trip.AddIssue(r.Err, line.Number)
		}

	case *credit.Result:
		b := e.ensure(line.Number)
		b.trip.Credit = r.Credit
		if r.Err != nil {
			b.trip.AddIssue(r.Err, line.Number)
		}

	case *leg.Result:
		b := e.ensure(line.Number)
		b.legLines++
		if r.Day != "" {
			b.curDay = r.Day
		}
		if b.curDay == "" {
			b.trip.AddIssue(fmt.Errorf("%w: leg before any duty-day letter", roster.ErrMalformedTripBlock), line.Number)
			break
		}
		day := b.trip.Day(b.curDay)
		if !r.Valid() {
			b.trip.AddIssue(r.Err, line.Number)
			break
		}
		l := r.Leg
		l.Day = b.curDay
		day.Legs = append(day.Legs, l)

	default:
		// A '#' line always opens a block, even if the header is unreadable.
		if strings.HasPrefix(trimmed, "#") {
			e.close()
			b := e.start(line.Number)
			b.trip.Number = fmt.Sprintf("L%d", line.Number)
			b.trip.AddIssue(fmt.Errorf("%w: unreadable header %q", roster.ErrMalformedTripBlock, trimmed), line.Number)
		}
		// Anything else (CHECK-IN notes, hotel lines, page headers) is
		// filler and neither opens nor closes a block.
	}

	if e.open != nil {
		e.open.lastLine = line.Number
	}
}

func (e *extraction) start(lineNo int) *block {
	e.open = &block{
		trip: &roster.Trip{
			Context:   e.ctx,
			StartLine: lineNo,
		},
		lastLine: lineNo,
	}
	return e.open
}

// ensure returns the open block, opening a header-less one if needed.
func (e *extraction) ensure(lineNo int) *block {
	if e.open != nil {
		return e.open
	}
	b := e.start(lineNo)
	b.trip.Number = fmt.Sprintf("L%d", lineNo)
	return b
}

func (e *extraction) close() {
	b := e.open
	if b == nil {
		return
	}
	e.open = nil

	trip := b.trip
	trip.EndLine = b.lastLine

	if !b.header && b.legLines == 0 {
		e.result.Skipped++
		issue := roster.NewIssue(fmt.Errorf("%w: block at lines %d-%d has no header and no legs",
			roster.ErrMalformedTripBlock, trip.StartLine, trip.EndLine), "", trip.StartLine)
		e.result.Issues = append(e.result.Issues, append(trip.Issues, issue)...)
		return
	}

	if trip.LegCount() == 0 {
		trip.AddIssue(fmt.Errorf("%w: trip has no valid legs", roster.ErrMalformedTripBlock), trip.StartLine)
	} else if !trip.Contiguous() {
		trip.AddIssue(fmt.Errorf("%w: duty days are not contiguous from A", roster.ErrMalformedTripBlock), trip.StartLine)
	}

	e.result.Trips = append(e.result.Trips, trip)
	e.result.Issues = append(e.result.Issues, trip.Issues...)
}

// LineTrace is the classification of one source line.
type LineTrace struct {
	Line    int                     `json:"line"`
	Text    string                  `json:"text"`
	Kind    string                  `json:"kind"`
	Parsers []*registry.TraceResult `json:"parsers,omitempty"`
}

// Trace classifies every non-blank line with the default registry. When
// verbose is set each parser's trace is included.
func Trace(text string, verbose bool) []LineTrace {
	sortOnce.Do(registry.Default().Sort)
	reg := registry.Default()

	var out []LineTrace
	for _, line := range Lines(text) {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		lt := LineTrace{Line: line.Number, Text: line.Text, Kind: "filler"}
		if r := reg.Dispatch(&line); r != nil {
			lt.Kind = r.Kind()
		}
		if verbose {
			lt.Parsers = reg.Trace(&line)
		}
		out = append(out, lt)
	}
	return out
}
