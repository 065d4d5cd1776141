// Package credit parses TOTAL CREDIT lines.
package credit

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"roster_parser/internal/patterns"
	"roster_parser/internal/registry"
	"roster_parser/internal/roster"
)

// Result represents a parsed TOTAL CREDIT line.
type Result struct {
	Line   int            `json:"line"`
	Credit *roster.Credit `json:"credit"`

	// Err reports values that were present but unreadable, or a missing TL.
	Err error `json:"-"`
}

func (r *Result) Kind() string    { return "credit" }
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

// Parser parses TOTAL CREDIT lines.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string  { return "credit" }
func (p *Parser) Priority() int { return 20 }

func (p *Parser) QuickCheck(text string) bool {
	return strings.Contains(strings.ToUpper(text), "TOTAL CREDIT")
}

func (p *Parser) Parse(line *roster.Line) registry.Result {
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}

	match := compiler.Parse(line.Text)
	if match == nil {
		return nil
	}

	result := &Result{
		Line:   line.Number,
		Credit: &roster.Credit{},
	}

	var errs []error
	set := func(dst *decimal.NullDecimal, field string) {
		raw := match.GetCapture(field, "")
		if raw == "" {
			return
		}
		v, err := roster.ParseHours(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = decimal.NewNullDecimal(v)
	}

	set(&result.Credit.Total, "tl")
	set(&result.Credit.Block, "bl")
	set(&result.Credit.Overage, "cr")
	set(&result.Credit.FDP, "fdp")
	set(&result.Credit.TAFB, "tafb")

	if !result.Credit.Total.Valid {
		errs = append(errs, fmt.Errorf("%w: no TL value", roster.ErrMissingCreditData))
	}
	result.Err = errors.Join(errs...)
	return result
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(line *roster.Line) *registry.TraceResult {
	compiler, err := getCompiler()
	return registry.TraceCompiler(p.Name(), p.QuickCheck(line.Text), "No TOTAL CREDIT keyword found",
		compiler, err, line.Text)
}
