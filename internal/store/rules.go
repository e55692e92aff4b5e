package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/pricing"
)

func (s *SQLiteStore) CreateRule(ctx context.Context, r *pricing.Rule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	conditionsJSON, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pricing_rules
		 (id, tenant_id, site_id, name, conditions, adjustment_type, adjustment_value,
		  min_price, max_price, priority, stackable, valid_from, valid_until, is_active,
		  applied_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		r.ID.String(), r.TenantID, nullableString(r.SiteID), r.Name, string(conditionsJSON),
		string(r.AdjustmentType), r.AdjustmentValue.String(),
		nullableDecimal(r.MinPrice), nullableDecimal(r.MaxPrice),
		r.Priority, r.Stackable, nullableTime(r.ValidFrom), nullableTime(r.ValidUntil),
		r.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	r.CreatedAt = time.Unix(now, 0)
	r.UpdatedAt = time.Unix(now, 0)
	return nil
}

const ruleColumns = `id, tenant_id, site_id, name, conditions, adjustment_type, adjustment_value,
	min_price, max_price, priority, stackable, valid_from, valid_until, is_active,
	applied_count, created_at, updated_at`

func (s *SQLiteStore) GetRule(ctx context.Context, id uuid.UUID) (*pricing.Rule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE id = ? AND deleted_at IS NULL`,
		id.String(),
	)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return r, nil
}

// ListRules returns a tenant's rules, newest priority first. An empty siteID
// returns only tenant-wide rules; otherwise site-scoped rules for that site
// are included alongside the tenant-wide ones.
func (s *SQLiteStore) ListRules(ctx context.Context, tenantID, siteID string, activeOnly bool) ([]pricing.Rule, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + ruleColumns + ` FROM pricing_rules
		WHERE tenant_id = ? AND deleted_at IS NULL AND (site_id IS NULL OR site_id = ?)`)
	if activeOnly {
		b.WriteString(` AND is_active = 1`)
	}
	b.WriteString(` ORDER BY priority DESC, created_at ASC`)

	rows, err := s.db.QueryContext(ctx, b.String(), tenantID, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []pricing.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pricing_rules SET is_active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		active, time.Now().Unix(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireRow(result)
}

// SoftDeleteRule excludes the rule from evaluation and listings while
// keeping the row for historical audit.
func (s *SQLiteStore) SoftDeleteRule(ctx context.Context, id uuid.UUID) error {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE pricing_rules SET deleted_at = ?, is_active = 0, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRow(result)
}

// IncrementRuleApplied bumps the applied counters atomically in SQL so
// concurrent price resolutions never lose updates.
func (s *SQLiteStore) IncrementRuleApplied(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		_, err := s.db.ExecContext(ctx,
			`UPDATE pricing_rules SET applied_count = applied_count + 1 WHERE id = ?`,
			id.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to increment applied count: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*pricing.Rule, error) {
	var (
		r                  pricing.Rule
		idStr              string
		siteID             sql.NullString
		conditionsJSON     string
		adjustmentType     string
		adjustmentValue    string
		minPrice, maxPrice sql.NullString
		validFrom          sql.NullInt64
		validUntil         sql.NullInt64
		createdAt          int64
		updatedAt          int64
	)

	err := row.Scan(&idStr, &r.TenantID, &siteID, &r.Name, &conditionsJSON,
		&adjustmentType, &adjustmentValue, &minPrice, &maxPrice,
		&r.Priority, &r.Stackable, &validFrom, &validUntil, &r.IsActive,
		&r.AppliedCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	r.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule id: %w", err)
	}
	if err := json.Unmarshal([]byte(conditionsJSON), &r.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	r.SiteID = siteID.String
	r.AdjustmentType = pricing.AdjustmentType(adjustmentType)
	r.AdjustmentValue, err = decimal.NewFromString(adjustmentValue)
	if err != nil {
		return nil, fmt.Errorf("failed to parse adjustment value: %w", err)
	}
	if r.MinPrice, err = decimalFromNullable(minPrice); err != nil {
		return nil, err
	}
	if r.MaxPrice, err = decimalFromNullable(maxPrice); err != nil {
		return nil, err
	}
	r.ValidFrom = timeFromNullable(validFrom)
	r.ValidUntil = timeFromNullable(validUntil)
	r.CreatedAt = time.Unix(createdAt, 0)
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
