// Package registry provides tracing interfaces for parser debugging.
package registry

import (
	"roster_parser/internal/patterns"
	"roster_parser/internal/roster"
)

// TraceResult contains trace information from a parser's attempt to parse a line.
type TraceResult struct {
	ParserName string        `json:"parser"`
	QuickCheck *QuickCheck   `json:"quick_check,omitempty"`
	Formats    []FormatTrace `json:"formats,omitempty"`
	Matched    bool          `json:"matched"`
}

// QuickCheck contains the result of a parser's quick check.
type QuickCheck struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// FormatTrace contains debug information about a format/pattern match attempt.
type FormatTrace struct {
	Name     string            `json:"name"`
	Matched  bool              `json:"matched"`
	Pattern  string            `json:"pattern"`
	Captures map[string]string `json:"captures,omitempty"`
}

// Traceable is implemented by parsers that support debug tracing.
// The trace command uses it to show why a line did or didn't match.
type Traceable interface {
	ParseWithTrace(line *roster.Line) *TraceResult
}

// TraceCompiler builds a TraceResult for a grok-style parser. reason is
// reported when the quick check fails.
func TraceCompiler(name string, passed bool, reason string, compiler *patterns.Compiler, err error, text string) *TraceResult {
	trace := &TraceResult{
		ParserName: name,
		QuickCheck: &QuickCheck{Passed: passed},
	}
	if !passed {
		trace.QuickCheck.Reason = reason
		return trace
	}
	if err != nil {
		trace.QuickCheck.Reason = "Failed to get compiler: " + err.Error()
		return trace
	}

	compilerTrace := compiler.ParseWithTrace(text)
	for _, ft := range compilerTrace.Formats {
		trace.Formats = append(trace.Formats, FormatTrace{
			Name:     ft.Name,
			Matched:  ft.Matched,
			Pattern:  ft.Pattern,
			Captures: ft.Captures,
		})
	}
	trace.Matched = compilerTrace.Match != nil
	return trace
}
