package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"roster_parser/internal/roster"
)

// sqliteTimeLayout is fixed-width so created_at sorts as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates a SQLite archive at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the API read while the CLI archives.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		file_name     TEXT NOT NULL,
		content_hash  TEXT NOT NULL,
		month         INTEGER NOT NULL,
		year          INTEGER NOT NULL,
		base_filter   TEXT NOT NULL,
		front         TEXT NOT NULL,
		back          TEXT NOT NULL,
		trip_count    INTEGER NOT NULL DEFAULT 0,
		report_json   TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(content_hash);
	CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(file_name);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun stores run. The id must be unique.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, file_name, content_hash, month, year, base_filter, front, back, trip_count, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID.String(), run.FileName, run.ContentHash, run.Context.Month, run.Context.Year,
		run.BaseFilter, run.Front.String(), run.Back.String(), run.TripCount,
		string(run.Report), run.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns the run with its report.
func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, content_hash, month, year, base_filter, front, back, trip_count, created_at, report_json
		FROM runs WHERE id = ?
	`, id.String())

	var report string
	run, err := scanSQLiteRun(row, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	run.Report = []byte(report)
	return run, nil
}

// ListRuns returns runs matching p, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, p ListParams) ([]Run, error) {
	var conditions []string
	var args []interface{}

	if p.FileName != "" {
		conditions = append(conditions, "file_name = ?")
		args = append(args, p.FileName)
	}
	if p.ContentHash != "" {
		conditions = append(conditions, "content_hash = ?")
		args = append(args, p.ContentHash)
	}

	query := `SELECT id, file_name, content_hash, month, year, base_filter, front, back, trip_count, created_at FROM runs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSQLiteRun scans the common run columns followed by any extra
// destinations.
func scanSQLiteRun(row scanner, extra ...interface{}) (*Run, error) {
	var (
		run             Run
		id, front, back string
		created         string
	)
	dest := []interface{}{&id, &run.FileName, &run.ContentHash, &run.Context.Month, &run.Context.Year,
		&run.BaseFilter, &front, &back, &run.TripCount, &created}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := decodeRunColumns(&run, id, front, back); err != nil {
		return nil, err
	}
	t, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: created_at: %w", id, err)
	}
	run.CreatedAt = t
	return &run, nil
}

// decodeRunColumns fills the fields stored as text in both archives.
func decodeRunColumns(run *Run, id, front, back string) error {
	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("run id %q: %w", id, err)
	}
	if run.Front, err = roster.ParseClock(front); err != nil {
		return fmt.Errorf("run %s: front: %w", id, err)
	}
	if run.Back, err = roster.ParseClock(back); err != nil {
		return fmt.Errorf("run %s: back: %w", id, err)
	}
	return nil
}
