// Package header parses trip header lines ("#1234 WE FR EFFECTIVE ...").
package header

import (
	"strings"
	"sync"

	"roster_parser/internal/daterange"
	"roster_parser/internal/patterns"
	"roster_parser/internal/registry"
	"roster_parser/internal/roster"
)

// Result represents a parsed trip header.
type Result struct {
	Line      int                  `json:"line"`
	Number    string               `json:"trip_number"`
	Weekdays  daterange.Weekdays   `json:"-"`
	Days      string               `json:"days_of_week,omitempty"`
	Effective daterange.Expression `json:"effective"`
	Except    []daterange.MonthDay `json:"-"`

	// Err is set when the EFFECTIVE text could not be parsed. The header
	// still opens a block.
	Err error `json:"-"`
}

func (r *Result) Kind() string    { return "header" }
func (r *Result) LineNumber() int { return r.Line }

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

// getCompiler returns the singleton grok compiler.
func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

// Parser parses trip header lines.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string  { return "header" }
func (p *Parser) Priority() int { return 10 }

// QuickCheck looks for the leading '#'.
func (p *Parser) QuickCheck(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "#")
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
		Line:     line.Number,
		Number:   match.Captures["trip"],
		Weekdays: daterange.ParseWeekdays(match.Captures["dow"]),
	}
	result.Days = result.Weekdays.String()

	if match.FormatName != "effective" {
		return result
	}

	// Some exports put EXCEPT on the header line itself.
	expr := match.Captures["expr"]
	var except string
	if idx := strings.Index(expr, "EXCEPT"); idx >= 0 {
		expr, except = strings.TrimSpace(expr[:idx]), expr[idx:]
	}

	result.Effective, result.Err = daterange.Parse(expr)
	if result.Effective.Raw == "" {
		result.Effective.Raw = "EFFECTIVE"
	}
	if except != "" && result.Err == nil {
		result.Except, result.Err = daterange.ParseExcept(except)
	}
	return result
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(line *roster.Line) *registry.TraceResult {
	compiler, err := getCompiler()
	return registry.TraceCompiler(p.Name(), p.QuickCheck(line.Text), "Line does not start with '#'",
		compiler, err, strings.TrimSpace(line.Text))
}
