package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"roster_parser/internal/analysis"
	"roster_parser/internal/classifier"
	"roster_parser/internal/config"
)

// ClickHouseDB is the trip-fact analytics sink.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the trip_facts table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS trip_facts (
		run_id            UUID,
		recorded_at       DateTime64(3),
		file_name         String,
		month             UInt8,
		year              UInt16,
		trip_number       String,
		base              LowCardinality(String),
		occurrences       UInt32,
		base_length       UInt8,
		adjusted_length   UInt8,
		red_eye           Bool,
		final_leg_red_eye Bool,
		one_leg_last_day  Bool,
		front_commutable  Bool,
		back_commutable   Bool,
		both_commutable   Bool,
		malformed         Bool,
		credit            Nullable(Decimal(9, 2)),
		overage           Nullable(Decimal(9, 2)),
		tafb              Nullable(Decimal(9, 2)),
		credit_category   LowCardinality(String),
		report            String,
		release           String
	)
	ENGINE = MergeTree()
	PARTITION BY (year, month)
	ORDER BY (base, year, month, trip_number, run_id)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// TripFact is one classified trip as stored in ClickHouse.
type TripFact struct {
	RunID           uuid.UUID
	RecordedAt      time.Time
	FileName        string
	Month           uint8
	Year            uint16
	TripNumber      string
	Base            string
	Occurrences     uint32
	BaseLength      uint8
	AdjustedLength  uint8
	RedEye          bool
	FinalLegRedEye  bool
	OneLegLastDay   bool
	FrontCommutable bool
	BackCommutable  bool
	BothCommutable  bool
	Malformed       bool
	Credit          *decimal.Decimal
	Overage         *decimal.Decimal
	TAFB            *decimal.Decimal
	Category        string
	Report          string
	Release         string
}

// TripFacts flattens a run's report into one fact per classified trip.
func TripFacts(run *Run, report *analysis.Report) []TripFact {
	facts := make([]TripFact, 0, len(report.Trips))
	for _, t := range report.Trips {
		facts = append(facts, newTripFact(run, t))
	}
	return facts
}

func newTripFact(run *Run, t classifier.ClassifiedTrip) TripFact {
	f := TripFact{
		RunID:           run.ID,
		RecordedAt:      run.CreatedAt,
		FileName:        run.FileName,
		Month:           uint8(run.Context.Month),
		Year:            uint16(run.Context.Year),
		TripNumber:      t.Number,
		Base:            t.Base,
		Occurrences:     uint32(t.Occurrences),
		BaseLength:      uint8(t.BaseLength),
		AdjustedLength:  uint8(t.AdjustedLength),
		RedEye:          t.RedEye,
		FinalLegRedEye:  t.FinalLegRedEye,
		OneLegLastDay:   t.OneLegLastDay,
		FrontCommutable: t.FrontCommutable,
		BackCommutable:  t.BackCommutable,
		BothCommutable:  t.BothCommutable,
		Malformed:       t.Malformed,
		Credit:          nullable(t.Credit),
		Overage:         nullable(t.Overage),
		TAFB:            nullable(t.TAFB),
		Category:        string(t.Category),
	}
	if t.ReportValid {
		f.Report = t.Report.String()
	}
	if t.ReleaseValid {
		f.Release = t.Release.String()
	}
	return f
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// InsertTripFacts stores facts in one batch.
func (d *ClickHouseDB) InsertTripFacts(ctx context.Context, facts []TripFact) error {
	if len(facts) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `INSERT INTO trip_facts`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range facts {
		err := batch.Append(f.RunID, f.RecordedAt, f.FileName, f.Month, f.Year, f.TripNumber, f.Base,
			f.Occurrences, f.BaseLength, f.AdjustedLength, f.RedEye, f.FinalLegRedEye, f.OneLegLastDay,
			f.FrontCommutable, f.BackCommutable, f.BothCommutable, f.Malformed,
			f.Credit, f.Overage, f.TAFB, f.Category, f.Report, f.Release)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// OccurrencesByBase returns occurrence-weighted trip counts per base for
// one roster month, across every archived run.
func (d *ClickHouseDB) OccurrencesByBase(ctx context.Context, month, year int) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	rows, err := d.conn.Query(ctx, `
		SELECT base, sum(occurrences)
		FROM trip_facts
		WHERE month = ? AND year = ? AND NOT malformed
		GROUP BY base`, uint8(month), uint16(year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var base string
		var count uint64
		if err := rows.Scan(&base, &count); err != nil {
			return nil, fmt.Errorf("scan occurrences by base: %w", err)
		}
		counts[base] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences by base: %w", err)
	}
	return counts, nil
}
