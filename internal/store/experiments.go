package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/priceforge/priceforge/internal/experiment"
)

func (s *SQLiteStore) CreateExperiment(ctx context.Context, e *experiment.Experiment) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = experiment.StatusDraft
	}
	variantsJSON, err := json.Marshal(e.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pricing_experiments
		 (id, tenant_id, site_id, name, description, status, variants,
		  traffic_percentage, min_sample_size, confidence_level, duration_days,
		  started_at, ended_at, results, winning_variant, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, NULL, ?, ?)`,
		e.ID.String(), e.TenantID, nullableString(e.SiteID), e.Name, e.Description,
		string(e.Status), string(variantsJSON),
		e.TrafficPercentage, e.MinSampleSize, e.ConfidenceLevel, e.DurationDays,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	e.CreatedAt = time.Unix(now, 0)
	e.UpdatedAt = time.Unix(now, 0)
	return nil
}

const experimentColumns = `id, tenant_id, site_id, name, description, status, variants,
	traffic_percentage, min_sample_size, confidence_level, duration_days,
	started_at, ended_at, results, winning_variant, created_at, updated_at`

func (s *SQLiteStore) GetExperiment(ctx context.Context, name string) (*experiment.Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM pricing_experiments WHERE name = ?`, name,
	)
	e, err := scanExperiment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*experiment.Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+experimentColumns+` FROM pricing_experiments ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*experiment.Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		experiments = append(experiments, e)
	}
	return experiments, rows.Err()
}

// UpdateExperiment persists the mutable lifecycle fields: status, the
// start/end stamps, the results snapshot, and the verdict.
func (s *SQLiteStore) UpdateExperiment(ctx context.Context, e *experiment.Experiment) error {
	var resultsJSON sql.NullString
	if e.Results != nil {
		data, err := json.Marshal(e.Results)
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		resultsJSON = sql.NullString{String: string(data), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE pricing_experiments
		 SET status = ?, started_at = ?, ended_at = ?, results = ?, winning_variant = ?, updated_at = ?
		 WHERE id = ?`,
		string(e.Status), nullableTime(e.StartedAt), nullableTime(e.EndedAt),
		resultsJSON, nullableString(e.WinningVariant), time.Now().Unix(), e.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}
	return requireRow(result)
}

func scanExperiment(row rowScanner) (*experiment.Experiment, error) {
	var (
		e              experiment.Experiment
		idStr          string
		siteID         sql.NullString
		description    sql.NullString
		status         string
		variantsJSON   string
		startedAt      sql.NullInt64
		endedAt        sql.NullInt64
		resultsJSON    sql.NullString
		winningVariant sql.NullString
		createdAt      int64
		updatedAt      int64
	)

	err := row.Scan(&idStr, &e.TenantID, &siteID, &e.Name, &description, &status,
		&variantsJSON, &e.TrafficPercentage, &e.MinSampleSize, &e.ConfidenceLevel,
		&e.DurationDays, &startedAt, &endedAt, &resultsJSON, &winningVariant,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse experiment id: %w", err)
	}
	if err := json.Unmarshal([]byte(variantsJSON), &e.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &e.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}
	e.SiteID = siteID.String
	e.Description = description.String
	e.Status = experiment.Status(status)
	e.StartedAt = timeFromNullable(startedAt)
	e.EndedAt = timeFromNullable(endedAt)
	e.WinningVariant = winningVariant.String
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}
