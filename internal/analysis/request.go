package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"roster_parser/internal/classifier"
	"roster_parser/internal/config"
	"roster_parser/internal/roster"
)

// Request is the wire form of a single-file analysis, shared by the HTTP
// API and the NATS feed.
type Request struct {
	FileName string  `json:"file_name"`
	Text     string  `json:"text"`
	Month    FlexInt `json:"month"`
	Year     FlexInt `json:"year"`

	Base  string `json:"base,omitempty"`
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`
}

// Input returns the file part of the request.
func (r Request) Input() Input {
	return Input{
		Name:    r.FileName,
		Text:    r.Text,
		Context: roster.Context{Month: int(r.Month), Year: int(r.Year)},
	}
}

// Options resolves the request's filter and thresholds over defaults.
func (r Request) Options(defaults classifier.CommuteThresholds) (Options, error) {
	return ResolveOptions(defaults, r.Base, r.Front, r.Back)
}

// BatchRequest analyzes several files with shared options. Per-file base,
// front and back are ignored.
type BatchRequest struct {
	Files []Request `json:"files"`

	Base  string `json:"base,omitempty"`
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`
}

// Inputs returns the files of the batch in order.
func (b BatchRequest) Inputs() []Input {
	inputs := make([]Input, 0, len(b.Files))
	for _, f := range b.Files {
		inputs = append(inputs, f.Input())
	}
	return inputs
}

// ResolveOptions builds Options from optional front/back overrides. The
// base filter is validated later by AnalyzeFile.
func ResolveOptions(defaults classifier.CommuteThresholds, base, front, back string) (Options, error) {
	th, err := config.Thresholds(defaults, front, back)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	opts.BaseFilter = base
	opts.Thresholds = th
	return opts, nil
}

// FlexInt accepts a JSON number or a numeric string ("1", "2026").
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexInt(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number, got %s", data)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected number, got %q", s)
	}
	*f = FlexInt(i)
	return nil
}
