// Package separator recognises the dashed lines that close a trip block.
package separator

import (
	"strings"

	"roster_parser/internal/registry"
	"roster_parser/internal/roster"
)

// MinDashes is the shortest run of dashes treated as a block separator.
const MinDashes = 5

// Result marks a separator line.
type Result struct {
	Line int `json:"line"`
}

func (r *Result) Kind() string    { return "separator" }
func (r *Result) LineNumber() int { return r.Line }

// Parser recognises separator lines.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string  { return "separator" }
func (p *Parser) Priority() int { return 5 }

func (p *Parser) QuickCheck(text string) bool {
	return strings.Contains(text, strings.Repeat("-", MinDashes))
}

// Parse accepts lines made only of dashes and spacing, e.g. "-----  -----".
// Lines that merely contain a dash run ("EFFECTIVE JAN21-----") are not
// separators.
func (p *Parser) Parse(line *roster.Line) registry.Result {
	for _, r := range line.Text {
		switch r {
		case '-', ' ', '\t', '=', '+':
		default:
			return nil
		}
	}
	return &Result{Line: line.Number}
}
