// Package registry provides a line parser registry for classifying roster
// text lines.
package registry

import (
	"sort"
	"sync"

	"roster_parser/internal/roster"
)

// Result is the common interface for all line parse results.
type Result interface {
	Kind() string    // e.g., "header", "leg", "credit"
	LineNumber() int // The source line number
}

// Parser is implemented by each line parser.
type Parser interface {
	// Name returns the parser's unique identifier.
	Name() string

	// QuickCheck performs a fast string check before expensive regex.
	// Returns true if the line MIGHT be parseable (false = definitely skip).
	// This should use strings.Contains/HasPrefix, NOT regex.
	QuickCheck(text string) bool

	// Priority determines dispatch order. Lower number = checked first.
	Priority() int

	// Parse attempts to parse the line, returns nil if not applicable.
	Parse(line *roster.Line) Result
}

// Registry holds all registered parsers in priority order.
type Registry struct {
	mu      sync.RWMutex
	parsers []Parser
	sorted  bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a parser to the default registry.
// Called during init() in each parser package.
func Register(p Parser) {
	defaultRegistry.Register(p)
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = append(r.parsers, p)
	r.sorted = false
}

// Sort orders parsers by priority. Call before dispatching.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}
	sort.SliceStable(r.parsers, func(i, j int) bool {
		return r.parsers[i].Priority() < r.parsers[j].Priority()
	})
	r.sorted = true
}

// Dispatch returns the result of the first parser that accepts the line,
// or nil when no parser recognises it.
// If Sort() has not been called, parsers run in registration order.
func (r *Registry) Dispatch(line *roster.Line) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.parsers {
		if !p.QuickCheck(line.Text) {
			continue
		}
		if result := p.Parse(line); result != nil {
			return result
		}
	}
	return nil
}

// Trace runs every traceable parser against the line and returns their
// traces in dispatch order.
func (r *Registry) Trace(line *roster.Line) []*TraceResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var traces []*TraceResult
	for _, p := range r.parsers {
		if tp, ok := p.(Traceable); ok {
			traces = append(traces, tp.ParseWithTrace(line))
			continue
		}
		passed := p.QuickCheck(line.Text)
		traces = append(traces, &TraceResult{
			ParserName: p.Name(),
			QuickCheck: &QuickCheck{Passed: passed},
			Matched:    passed && p.Parse(line) != nil,
		})
	}
	return traces
}

// ParserCount returns the number of registered parsers.
func (r *Registry) ParserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parsers)
}

// AllParsers returns all registered parsers in their current order.
func (r *Registry) AllParsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Parser, len(r.parsers))
	copy(result, r.parsers)
	return result
}
