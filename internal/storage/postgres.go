package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN renders the settings as a postgres:// URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// PostgresStore is a Store backed by a PostgreSQL pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying pool for direct queries.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// CreateSchema creates the roster_runs table.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS roster_runs (
		id            UUID PRIMARY KEY,
		file_name     TEXT NOT NULL,
		content_hash  TEXT NOT NULL,
		month         SMALLINT NOT NULL,
		year          SMALLINT NOT NULL,
		base_filter   TEXT NOT NULL,
		front         TEXT NOT NULL,
		back          TEXT NOT NULL,
		trip_count    INTEGER NOT NULL DEFAULT 0,
		report        JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_roster_runs_created ON roster_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_roster_runs_hash ON roster_runs(content_hash);
	CREATE INDEX IF NOT EXISTS idx_roster_runs_file ON roster_runs(file_name);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRun stores run. The id must be unique.
func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO roster_runs (id, file_name, content_hash, month, year, base_filter, front, back, trip_count, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, run.ID.String(), run.FileName, run.ContentHash, run.Context.Month, run.Context.Year,
		run.BaseFilter, run.Front.String(), run.Back.String(), run.TripCount,
		[]byte(run.Report), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns the run with its report.
func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var report []byte
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, file_name, content_hash, month, year, base_filter, front, back, trip_count, created_at, report
		FROM roster_runs WHERE id = $1
	`, id.String())

	run, err := scanPostgresRun(row, &report)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	run.Report = report
	return run, nil
}

// ListRuns returns runs matching p, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, p ListParams) ([]Run, error) {
	var conditions []string
	var args []interface{}

	if p.FileName != "" {
		args = append(args, p.FileName)
		conditions = append(conditions, fmt.Sprintf("file_name = $%d", len(args)))
	}
	if p.ContentHash != "" {
		args = append(args, p.ContentHash)
		conditions = append(conditions, fmt.Sprintf("content_hash = $%d", len(args)))
	}

	query := `SELECT id::text, file_name, content_hash, month, year, base_filter, front, back, trip_count, created_at FROM roster_runs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanPostgresRun(row pgx.Row, extra ...interface{}) (*Run, error) {
	var (
		run             Run
		id, front, back string
		month, year     int16
	)
	dest := []interface{}{&id, &run.FileName, &run.ContentHash, &month, &year,
		&run.BaseFilter, &front, &back, &run.TripCount, &run.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Context.Month, run.Context.Year = int(month), int(year)
	if err := decodeRunColumns(&run, id, front, back); err != nil {
		return nil, err
	}
	return &run, nil
}
