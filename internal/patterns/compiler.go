// Package patterns provides the grok-style pattern compiler used by the
// roster line parsers.
package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// Format represents a line format with named capture groups.
type Format struct {
	Name     string         // Format name for identification
	Pattern  string         // Pattern with {PLACEHOLDER} syntax
	Compiled *regexp.Regexp // Compiled regex (populated by Compile)
	Fields   []string       // Field names in capture order (for documentation)
}

// Compiler manages pattern compilation and parsing for a set of formats.
type Compiler struct {
	basePatterns map[string]string
	formats      []Format
}

// NewCompiler creates a new pattern compiler with the given formats.
// Local patterns override entries of the global BasePatterns.
func NewCompiler(formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		basePatterns: make(map[string]string, len(BasePatterns)+len(localPatterns)),
		formats:      make([]Format, len(formats)),
	}
	for k, v := range BasePatterns {
		c.basePatterns[k] = v
	}
	for k, v := range localPatterns {
		c.basePatterns[k] = v
	}
	copy(c.formats, formats)
	return c
}

// Compile expands all {PLACEHOLDER} references and compiles regexes.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		re, err := regexp.Compile(c.Expand(c.formats[i].Pattern))
		if err != nil {
			return err
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// Expand replaces {PLACEHOLDER} with the underlying regex. Longer names are
// substituted first so {TIME} never clobbers part of {TIMETOKEN}.
func (c *Compiler) Expand(pattern string) string {
	names := make([]string, 0, len(c.basePatterns))
	for name := range c.basePatterns {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	result := pattern
	for _, name := range names {
		result = strings.ReplaceAll(result, "{"+name+"}", c.basePatterns[name])
	}
	return result
}

// Match represents a successful pattern match with extracted fields.
type Match struct {
	FormatName string            // Name of the matched format
	Captures   map[string]string // Named capture group values
}

// GetCapture returns a capture value, or defaultVal when it is missing or empty.
func (m *Match) GetCapture(name string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	if val, ok := m.Captures[name]; ok && val != "" {
		return val
	}
	return defaultVal
}

// Parse tries each format in order and returns the first match, or nil.
// Text is upper-cased before matching.
func (c *Compiler) Parse(text string) *Match {
	upperText := strings.ToUpper(text)
	for _, format := range c.formats {
		if format.Compiled == nil {
			continue
		}
		if captures := capture(format.Compiled, upperText); captures != nil {
			return &Match{FormatName: format.Name, Captures: captures}
		}
	}
	return nil
}

func capture(re *regexp.Regexp, text string) map[string]string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	captures := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		captures[name] = match[i]
	}
	return captures
}

// FormatTrace contains debug information about a format match attempt.
type FormatTrace struct {
	Name     string            // Format name
	Matched  bool              // Whether the pattern matched
	Pattern  string            // The expanded regex pattern
	Captures map[string]string // Captured groups (if matched)
}

// ParseTrace contains complete trace information for a parse attempt.
type ParseTrace struct {
	Formats []FormatTrace // All format match attempts
	Match   *Match        // The first successful match (if any)
}

// ParseWithTrace tries every format and records each attempt.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	upperText := strings.ToUpper(text)
	trace := &ParseTrace{
		Formats: make([]FormatTrace, 0, len(c.formats)),
	}

	for _, format := range c.formats {
		ft := FormatTrace{
			Name:    format.Name,
			Pattern: c.Expand(format.Pattern),
		}
		if format.Compiled != nil {
			if captures := capture(format.Compiled, upperText); captures != nil {
				ft.Matched = true
				ft.Captures = captures
				if trace.Match == nil {
					trace.Match = &Match{FormatName: format.Name, Captures: captures}
				}
			}
		}
		trace.Formats = append(trace.Formats, ft)
	}

	return trace
}
