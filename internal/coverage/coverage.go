// Package coverage measures how much of a roster file the line parsers
// recognise, and groups the remaining filler lines into token templates so
// new line formats stand out.
package coverage

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"roster_parser/internal/extractor"
)

// FillerKind is the line kind of text no parser recognised.
const FillerKind = "filler"

// DefaultTop is the number of templates reported when none is requested.
const DefaultTop = 10

// maxExamples is the number of sample lines kept per template.
const maxExamples = 2

var tokenPatterns = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{"<TRIP>", regexp.MustCompile(`^#\d+$`)},
	{"<DATE>", regexp.MustCompile(`^(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\.?(\d{1,2})?(-[A-Z0-9.]*)?$`)},
	{"<WEEKDAY>", regexp.MustCompile(`^(MO|TU|WE|TH|FR|SA|SU)$`)},
	{"<TIME>", regexp.MustCompile(`^[0-2]\d[0-5]\d\*?$`)},
	{"<HOURS>", regexp.MustCompile(`^\d{1,3}\.\d{2}[A-Z]{0,4}$`)},
	{"<NUM>", regexp.MustCompile(`^\d+$`)},
	{"<STATION>", regexp.MustCompile(`^[A-Z]{3}$`)},
}

var literalKeywords = map[string]bool{
	"EFFECTIVE": true, "EXCEPT": true, "ONLY": true, "CHECK-IN": true,
	"AT": true, "TOTAL": true, "CREDIT": true, "TAFB": true, "DH": true,
	"AND": true, "THE": true, "FOR": true,
}

var wordPattern = regexp.MustCompile(`^[A-Z][A-Z'&/-]{2,11}:?$`)

// ClassifyToken maps one upper-cased token onto its template placeholder.
// Keywords and short or plain words are kept literally.
func ClassifyToken(tok string) string {
	if literalKeywords[tok] {
		return tok
	}
	for _, tp := range tokenPatterns {
		if tp.Pattern.MatchString(tok) {
			return tp.Name
		}
	}
	if len(tok) <= 2 || wordPattern.MatchString(tok) {
		return tok
	}
	return "<OTHER>"
}

// NormalizeLine reduces a line to its token template.
func NormalizeLine(line string) string {
	tokens := strings.Fields(strings.ToUpper(line))
	for i, tok := range tokens {
		tokens[i] = ClassifyToken(tok)
	}
	return strings.Join(tokens, " ")
}

// KindCount is the number of lines of one kind.
type KindCount struct {
	Kind  string  `json:"kind"`
	Lines int     `json:"lines"`
	Pct   float64 `json:"percentage"`
}

// Template is a group of filler lines sharing one token template.
type Template struct {
	Template  string   `json:"template"`
	Count     int      `json:"count"`
	FirstLine int      `json:"first_line"`
	Examples  []string `json:"examples"`
}

// Report is the coverage of one or more roster files.
type Report struct {
	Files         int         `json:"files"`
	Lines         int         `json:"lines"`
	Recognised    int         `json:"recognised"`
	Filler        int         `json:"filler"`
	RecognisedPct float64     `json:"recognised_pct"`
	Kinds         []KindCount `json:"kinds"`
	Templates     []Template  `json:"templates,omitempty"`
}

// Collector accumulates line kinds and filler templates across files.
type Collector struct {
	files     int
	lines     int
	kinds     map[string]int
	templates map[string]*Template
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		kinds:     make(map[string]int),
		templates: make(map[string]*Template),
	}
}

// Add classifies every non-blank line of text.
func (c *Collector) Add(text string) {
	c.files++
	for _, lt := range extractor.Trace(text, false) {
		c.lines++
		c.kinds[lt.Kind]++
		if lt.Kind != FillerKind {
			continue
		}

		tmpl := NormalizeLine(lt.Text)
		t, ok := c.templates[tmpl]
		if !ok {
			t = &Template{Template: tmpl, FirstLine: lt.Line}
			c.templates[tmpl] = t
		}
		t.Count++
		if len(t.Examples) < maxExamples {
			t.Examples = append(t.Examples, strings.TrimSpace(lt.Text))
		}
	}
}

// Report returns the accumulated coverage with at most top templates,
// most frequent first. A top of zero or less means DefaultTop.
func (c *Collector) Report(top int) *Report {
	if top <= 0 {
		top = DefaultTop
	}

	r := &Report{Files: c.files, Lines: c.lines, Filler: c.kinds[FillerKind]}
	r.Recognised = r.Lines - r.Filler
	r.RecognisedPct = percent(r.Recognised, r.Lines)

	for kind, n := range c.kinds {
		r.Kinds = append(r.Kinds, KindCount{Kind: kind, Lines: n, Pct: percent(n, c.lines)})
	}
	sort.Slice(r.Kinds, func(i, j int) bool {
		if r.Kinds[i].Lines != r.Kinds[j].Lines {
			return r.Kinds[i].Lines > r.Kinds[j].Lines
		}
		return r.Kinds[i].Kind < r.Kinds[j].Kind
	})

	for _, t := range c.templates {
		r.Templates = append(r.Templates, *t)
	}
	sort.Slice(r.Templates, func(i, j int) bool {
		if r.Templates[i].Count != r.Templates[j].Count {
			return r.Templates[i].Count > r.Templates[j].Count
		}
		return r.Templates[i].Template < r.Templates[j].Template
	})
	if len(r.Templates) > top {
		r.Templates = r.Templates[:top]
	}
	return r
}

// Analyze is a one-shot Collector over texts.
func Analyze(top int, texts ...string) *Report {
	c := NewCollector()
	for _, t := range texts {
		c.Add(t)
	}
	return c.Report(top)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*10000/float64(total)) / 100
}
