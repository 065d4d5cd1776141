// Package analysis runs the full pipeline over roster files: extraction,
// classification, aggregation and diagnostics.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"roster_parser/internal/classifier"
	"roster_parser/internal/extractor"
	"roster_parser/internal/logger"
	"roster_parser/internal/metrics"
	"roster_parser/internal/roster"
	"roster_parser/internal/staffing"
)

// MaxBatchFiles is the most files AnalyzeBatch accepts in one call.
const MaxBatchFiles = 12

var (
	ErrTooManyFiles   = fmt.Errorf("too many files: at most %d per batch", MaxBatchFiles)
	ErrNoFiles        = errors.New("no files to analyze")
	ErrInvalidContext = errors.New("invalid roster context")
)

// Options control classification and aggregation.
type Options struct {
	BaseFilter string
	Thresholds classifier.CommuteThresholds
	// Aliases defaults to classifier.DefaultAliases.
	Aliases classifier.BaseAliases
}

// DefaultOptions aggregates all bases with the default thresholds.
func DefaultOptions() Options {
	return Options{
		BaseFilter: metrics.AllBases,
		Thresholds: classifier.DefaultThresholds(),
		Aliases:    classifier.DefaultAliases,
	}
}

// Input is one roster file with the month it was published for.
type Input struct {
	Name    string         `json:"file_name"`
	Text    string         `json:"text"`
	Context roster.Context `json:"context"`
}

// Diagnostics summarise what the pipeline could not use. Counts cover every
// trip in the file, regardless of base filter.
type Diagnostics struct {
	Lines         int            `json:"lines"`
	TripsFound    int            `json:"trips_found"`
	SkippedBlocks int            `json:"skipped_blocks"`
	Malformed     int            `json:"malformed_trips"`
	UnknownBase   int            `json:"unknown_base"`
	MissingCredit int            `json:"missing_credit"`
	DateErrors    int            `json:"date_errors"`
	NoTripsFound  bool           `json:"no_trips_found"`
	Issues        []roster.Issue `json:"issues,omitempty"`
}

// Report is the analysis of one file.
type Report struct {
	FileName    string                       `json:"file_name"`
	ContentHash string                       `json:"content_hash"`
	Context     roster.Context               `json:"context"`
	Thresholds  classifier.CommuteThresholds `json:"thresholds"`
	Aggregate   *metrics.AggregateResult     `json:"aggregate"`
	Diagnostics Diagnostics                  `json:"diagnostics"`
	Trips       []classifier.ClassifiedTrip  `json:"trips"`
}

// ContentHash returns the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// AnalyzeFile runs the pipeline over one file. Only a bad context or base
// filter is an error; problems inside the text end up in Diagnostics.
func AnalyzeFile(in Input, opts Options) (*Report, error) {
	if err := in.Context.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", in.Name, ErrInvalidContext, err)
	}
	if opts.Aliases == nil {
		opts.Aliases = classifier.DefaultAliases
	}

	extracted := extractor.Extract(in.Text, in.Context)
	trips := classifier.ClassifyAll(extracted.Trips, opts.Aliases, opts.Thresholds)

	agg, err := metrics.Aggregate(trips, opts.BaseFilter)
	if err != nil {
		return nil, err
	}

	report := &Report{
		FileName:    in.Name,
		ContentHash: ContentHash(in.Text),
		Context:     in.Context,
		Thresholds:  opts.Thresholds,
		Aggregate:   agg,
		Diagnostics: diagnose(extracted, trips),
		Trips:       trips,
	}

	logger.Debug("analyzed roster",
		"file", in.Name,
		"lines", extracted.Lines,
		"trips", len(trips),
		"skipped", extracted.Skipped,
		"issues", len(report.Diagnostics.Issues),
	)
	return report, nil
}

// AnalyzeBatch analyzes up to MaxBatchFiles inputs in parallel. Reports
// come back in input order. The first error cancels files not yet started.
func AnalyzeBatch(ctx context.Context, inputs []Input, opts Options) ([]*Report, error) {
	switch {
	case len(inputs) == 0:
		return nil, ErrNoFiles
	case len(inputs) > MaxBatchFiles:
		return nil, fmt.Errorf("%w (got %d)", ErrTooManyFiles, len(inputs))
	}

	reports := make([]*Report, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := AnalyzeFile(in, opts)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Calendar expands the report's in-scope trips onto a staffing calendar.
func (r *Report) Calendar() (*staffing.Calendar, error) {
	filter := metrics.AllBases
	if r.Aggregate != nil {
		filter = r.Aggregate.BaseFilter
	}
	trips, err := metrics.FilterByBase(r.Trips, filter)
	if err != nil {
		return nil, err
	}
	return staffing.ExpandToCalendar(trips), nil
}

func diagnose(extracted *extractor.Result, trips []classifier.ClassifiedTrip) Diagnostics {
	d := Diagnostics{
		Lines:         extracted.Lines,
		TripsFound:    len(trips),
		SkippedBlocks: extracted.Skipped,
		NoTripsFound:  extracted.NoTrips(),
	}
	d.Issues = append(d.Issues, extracted.Issues...)

	for _, t := range trips {
		if t.Malformed {
			d.Malformed++
		}
		if t.Base == classifier.UnknownBase && !t.Malformed {
			d.UnknownBase++
		}
		if !t.HasCredit() {
			d.MissingCredit++
		}
		if t.DateErr() != nil {
			d.DateErrors++
		}
		d.Issues = append(d.Issues, t.Issues...)
	}

	sort.SliceStable(d.Issues, func(i, j int) bool { return d.Issues[i].Line < d.Issues[j].Line })
	return d
}
