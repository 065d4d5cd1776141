// Package except parses EXCEPT lines that remove dates from a trip's
// EFFECTIVE range.
package except

import (
	"fmt"
	"strings"
	"sync"

	"roster_parser/internal/daterange"
	"roster_parser/internal/patterns"
	"roster_parser/internal/registry"
	"roster_parser/internal/roster"
)

// Result represents a parsed EXCEPT line. Err with no Dates means nothing
// could be read; Err alongside Dates means the line held text besides the
// dates, and the dates found still apply.
type Result struct {
	Line  int                  `json:"line"`
	Dates []daterange.MonthDay `json:"-"`
	Raw   string               `json:"raw"`
	Err   error                `json:"-"`
}

func (r *Result) Kind() string    { return "except" }
func (r *Result) LineNumber() int { return r.Line }

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

// Parser parses EXCEPT lines.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string  { return "except" }
func (p *Parser) Priority() int { return 30 }

func (p *Parser) QuickCheck(text string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "EXCEPT")
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
		Raw:  strings.TrimSpace(match.Captures["dates"]),
	}
	if match.FormatName == "except_unparsed" {
		dates, err := daterange.ParseExcept(result.Raw)
		if err != nil || len(dates) == 0 {
			result.Err = fmt.Errorf("%w: no EXCEPT dates in %q", daterange.ErrMalformedDateExpression, result.Raw)
			return result
		}
		result.Dates = dates
		result.Err = fmt.Errorf("%w: unrecognised text in EXCEPT %q", daterange.ErrMalformedDateExpression, result.Raw)
		return result
	}
	result.Dates, result.Err = daterange.ParseExcept(result.Raw)
	return result
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(line *roster.Line) *registry.TraceResult {
	compiler, err := getCompiler()
	return registry.TraceCompiler(p.Name(), p.QuickCheck(line.Text), "Line does not start with EXCEPT",
		compiler, err, strings.TrimSpace(line.Text))
}
