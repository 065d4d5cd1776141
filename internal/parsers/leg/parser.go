// Package leg parses duty-day flight leg lines.
package leg

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"roster_parser/internal/patterns"
	"roster_parser/internal/registry"
	"roster_parser/internal/roster"
)

// Result represents a parsed leg line. Day is empty on continuation lines.
// When a time column is invalid Err is set and Leg carries only the
// airports and flight number.
type Result struct {
	Line int              `json:"line"`
	Day  string           `json:"day,omitempty"`
	Leg  roster.FlightLeg `json:"leg"`
	Err  error            `json:"-"`
}

func (r *Result) Kind() string    { return "leg" }
func (r *Result) LineNumber() int { return r.Line }

// Valid reports whether the leg has usable times.
func (r *Result) Valid() bool { return r.Err == nil }

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

// Parser parses leg lines.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string  { return "leg" }
func (p *Parser) Priority() int { return 40 }

// QuickCheck requires at least the four airport/time columns and a digit.
func (p *Parser) QuickCheck(text string) bool {
	return len(strings.Fields(text)) >= 4 && strings.ContainsAny(text, "0123456789")
}

func (p *Parser) Parse(line *roster.Line) registry.Result {
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}

	match := compiler.Parse(strings.TrimSpace(line.Text))
	if match == nil {
		return nil
	}

	result := &Result{
		Line: line.Number,
		Day:  match.Captures["day"],
		Leg: roster.FlightLeg{
			Day:        match.Captures["day"],
			Deadhead:   match.Captures["dh"] != "",
			Flight:     match.Captures["flight"],
			DepAirport: match.Captures["dep"],
			ArrAirport: match.Captures["arr"],
			Line:       line.Number,
		},
	}

	dep, depErr := roster.ParseLegTime(match.Captures["dep_time"])
	arr, arrErr := roster.ParseLegTime(match.Captures["arr_time"])
	if depErr != nil || arrErr != nil {
		result.Err = fmt.Errorf("leg %s-%s: %w", result.Leg.DepAirport, result.Leg.ArrAirport,
			errors.Join(depErr, arrErr))
		return result
	}
	result.Leg.DepTime = dep
	result.Leg.ArrTime = arr
	return result
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(line *roster.Line) *registry.TraceResult {
	compiler, err := getCompiler()
	return registry.TraceCompiler(p.Name(), p.QuickCheck(line.Text), "Fewer than four columns or no digits",
		compiler, err, strings.TrimSpace(line.Text))
}
