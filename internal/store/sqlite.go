package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/priceforge/priceforge/internal/logx"
)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pricing_rules (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    site_id TEXT,
    name TEXT NOT NULL,
    conditions TEXT NOT NULL DEFAULT '{}',
    adjustment_type TEXT NOT NULL,
    adjustment_value TEXT NOT NULL,
    min_price TEXT,
    max_price TEXT,
    priority INTEGER NOT NULL DEFAULT 0,
    stackable INTEGER NOT NULL DEFAULT 1,
    valid_from INTEGER,
    valid_until INTEGER,
    is_active INTEGER NOT NULL DEFAULT 1,
    applied_count INTEGER NOT NULL DEFAULT 0,
    deleted_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_rules_tenant ON pricing_rules(tenant_id, is_active);
CREATE INDEX IF NOT EXISTS idx_rules_priority ON pricing_rules(tenant_id, priority);

CREATE TABLE IF NOT EXISTS pricing_experiments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    site_id TEXT,
    name TEXT UNIQUE NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'draft',
    variants TEXT NOT NULL,
    traffic_percentage REAL NOT NULL DEFAULT 100,
    min_sample_size INTEGER NOT NULL DEFAULT 100,
    confidence_level REAL NOT NULL DEFAULT 95,
    duration_days INTEGER NOT NULL DEFAULT 14,
    started_at INTEGER,
    ended_at INTEGER,
    results TEXT,
    winning_variant TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_name ON pricing_experiments(name);
CREATE INDEX IF NOT EXISTS idx_experiments_tenant_status ON pricing_experiments(tenant_id, status);

CREATE TABLE IF NOT EXISTS experiment_exposures (
    id TEXT PRIMARY KEY,
    experiment_id TEXT NOT NULL,
    visitor_id TEXT NOT NULL,
    variant_name TEXT NOT NULL,
    price_shown TEXT NOT NULL DEFAULT '0',
    converted INTEGER NOT NULL DEFAULT 0,
    revenue TEXT,
    converted_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (experiment_id) REFERENCES pricing_experiments(id)
);

CREATE INDEX IF NOT EXISTS idx_exposures_variant ON experiment_exposures(experiment_id, variant_name);
CREATE INDEX IF NOT EXISTS idx_exposures_visitor ON experiment_exposures(visitor_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_exposures_dedup ON experiment_exposures(experiment_id, visitor_id);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logx.Debug().Str("path", dbPath).Msg("database opened")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromNullable(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

func nullableDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func decimalFromNullable(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decimal %q: %w", v.String, err)
	}
	return &d, nil
}
