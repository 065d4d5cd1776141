// Package storage archives completed analyses and exports trip facts for
// fleet-wide analytics. The engine never depends on it.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roster_parser/internal/analysis"
	"roster_parser/internal/roster"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 100

// Run is one archived analysis.
type Run struct {
	ID          uuid.UUID       `json:"id"`
	FileName    string          `json:"file_name"`
	ContentHash string          `json:"content_hash"`
	Context     roster.Context  `json:"context"`
	BaseFilter  string          `json:"base_filter"`
	Front       roster.Clock    `json:"front"`
	Back        roster.Clock    `json:"back"`
	TripCount   int             `json:"trip_count"`
	Report      json.RawMessage `json:"report,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewRun builds a Run for report with a fresh id.
func NewRun(report *analysis.Report) (*Run, error) {
	b, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	run := &Run{
		ID:          uuid.New(),
		FileName:    report.FileName,
		ContentHash: report.ContentHash,
		Context:     report.Context,
		Front:       report.Thresholds.Front,
		Back:        report.Thresholds.Back,
		TripCount:   len(report.Trips),
		Report:      b,
		CreatedAt:   time.Now().UTC(),
	}
	if report.Aggregate != nil {
		run.BaseFilter = report.Aggregate.BaseFilter
	}
	return run, nil
}

// DecodeReport unmarshals the archived report.
func (r *Run) DecodeReport() (*analysis.Report, error) {
	if len(r.Report) == 0 {
		return nil, fmt.Errorf("run %s: no report stored", r.ID)
	}
	var rep analysis.Report
	if err := json.Unmarshal(r.Report, &rep); err != nil {
		return nil, fmt.Errorf("run %s: decode report: %w", r.ID, err)
	}
	return &rep, nil
}

// ListParams filters ListRuns.
type ListParams struct {
	FileName    string // Exact match.
	ContentHash string // Exact match.
	Limit       int    // Max results (default DefaultListLimit).
	Offset      int
}

func (p ListParams) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return DefaultListLimit
}

// Store is a run archive. ListRuns returns runs newest first, without
// their report bodies.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, p ListParams) ([]Run, error)
	Close() error
}

// FactSink receives trip facts for analytics. *ClickHouseDB implements it.
type FactSink interface {
	InsertTripFacts(ctx context.Context, facts []TripFact) error
}

// Archive records report as a new run. The run is saved to store and its
// trip facts sent to facts; either may be nil.
func Archive(ctx context.Context, store Store, facts FactSink, report *analysis.Report) (*Run, error) {
	run, err := NewRun(report)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}
	if facts != nil {
		if err := facts.InsertTripFacts(ctx, TripFacts(run, report)); err != nil {
			return run, fmt.Errorf("export trip facts: %w", err)
		}
	}
	return run, nil
}

// IsPostgresDSN reports whether dsn names a PostgreSQL server.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open opens the archive named by dsn: a postgres:// URL or a SQLite path.
// The schema is created if missing.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, errors.New("empty archive dsn")
	}
	if IsPostgresDSN(dsn) {
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return pg, nil
	}
	db, err := OpenSQLite(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return db, nil
}
