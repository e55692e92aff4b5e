package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/experiment"
)

// RecordExposure appends one assignment to the ledger. A visitor gets at
// most one row per experiment; repeats are ignored via the unique index,
// matching the deterministic assignment (the variant cannot differ).
func (s *SQLiteStore) RecordExposure(ctx context.Context, x *experiment.Exposure) error {
	if x.ID == uuid.Nil {
		x.ID = uuid.New()
	}
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO experiment_exposures
		 (id, experiment_id, visitor_id, variant_name, price_shown, converted, revenue, converted_at, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, NULL, NULL, ?)`,
		x.ID.String(), x.ExperimentID.String(), x.VisitorID, x.VariantName,
		x.PriceShown.String(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to record exposure: %w", err)
	}

	x.CreatedAt = time.Unix(now, 0)
	return nil
}

// MarkConverted stamps the visitor's exposure row with the conversion
// outcome and revenue. Returns ErrNotFound when no exposure exists.
func (s *SQLiteStore) MarkConverted(ctx context.Context, experimentID uuid.UUID, visitorID string, revenue decimal.Decimal, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE experiment_exposures
		 SET converted = 1, revenue = ?, converted_at = ?
		 WHERE experiment_id = ? AND visitor_id = ?`,
		revenue.String(), at.Unix(), experimentID.String(), visitorID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark conversion: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStore) ListExposures(ctx context.Context, experimentID uuid.UUID) ([]experiment.Exposure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment_id, visitor_id, variant_name, price_shown, converted, revenue, converted_at, created_at
		 FROM experiment_exposures WHERE experiment_id = ? ORDER BY created_at ASC`,
		experimentID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exposures: %w", err)
	}
	defer rows.Close()

	var exposures []experiment.Exposure
	for rows.Next() {
		var (
			x           experiment.Exposure
			idStr       string
			expIDStr    string
			priceShown  string
			revenue     sql.NullString
			convertedAt sql.NullInt64
			createdAt   int64
		)
		if err := rows.Scan(&idStr, &expIDStr, &x.VisitorID, &x.VariantName,
			&priceShown, &x.Converted, &revenue, &convertedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exposure: %w", err)
		}

		if x.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse exposure id: %w", err)
		}
		if x.ExperimentID, err = uuid.Parse(expIDStr); err != nil {
			return nil, fmt.Errorf("failed to parse experiment id: %w", err)
		}
		if x.PriceShown, err = decimal.NewFromString(priceShown); err != nil {
			return nil, fmt.Errorf("failed to parse price shown: %w", err)
		}
		if revenue.Valid && revenue.String != "" {
			if x.Revenue, err = decimal.NewFromString(revenue.String); err != nil {
				return nil, fmt.Errorf("failed to parse revenue: %w", err)
			}
		}
		x.ConvertedAt = timeFromNullable(convertedAt)
		x.CreatedAt = time.Unix(createdAt, 0)
		exposures = append(exposures, x)
	}
	return exposures, rows.Err()
}

// VariantTotals is the SQL-side rollup backing the list command.
func (s *SQLiteStore) VariantTotals(ctx context.Context, experimentID uuid.UUID) ([]VariantTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			variant_name,
			COUNT(*) as exposures,
			COUNT(CASE WHEN converted = 1 THEN 1 END) as conversions
		FROM experiment_exposures
		WHERE experiment_id = ?
		GROUP BY variant_name
		ORDER BY variant_name
	`, experimentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get variant totals: %w", err)
	}
	defer rows.Close()

	var totals []VariantTotal
	for rows.Next() {
		var t VariantTotal
		if err := rows.Scan(&t.VariantName, &t.Exposures, &t.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
