// Package store persists pricing rules, experiments, and the exposure
// ledger in embedded SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/pricing"
)

var ErrNotFound = errors.New("not found")

// VariantTotal is the SQL-side rollup used for quick listings; full
// aggregation with revenue goes through stats.Aggregate.
type VariantTotal struct {
	VariantName string
	Exposures   int
	Conversions int
}

// Store defines the persistence operations of the engine.
type Store interface {
	// Rule operations
	CreateRule(ctx context.Context, r *pricing.Rule) error
	GetRule(ctx context.Context, id uuid.UUID) (*pricing.Rule, error)
	ListRules(ctx context.Context, tenantID, siteID string, activeOnly bool) ([]pricing.Rule, error)
	SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error
	SoftDeleteRule(ctx context.Context, id uuid.UUID) error
	IncrementRuleApplied(ctx context.Context, ids []uuid.UUID) error

	// Experiment operations
	CreateExperiment(ctx context.Context, e *experiment.Experiment) error
	GetExperiment(ctx context.Context, name string) (*experiment.Experiment, error)
	ListExperiments(ctx context.Context) ([]*experiment.Experiment, error)
	UpdateExperiment(ctx context.Context, e *experiment.Experiment) error

	// Exposure ledger operations
	RecordExposure(ctx context.Context, x *experiment.Exposure) error
	MarkConverted(ctx context.Context, experimentID uuid.UUID, visitorID string, revenue decimal.Decimal, at time.Time) error
	ListExposures(ctx context.Context, experimentID uuid.UUID) ([]experiment.Exposure, error)
	VariantTotals(ctx context.Context, experimentID uuid.UUID) ([]VariantTotal, error)

	// Lifecycle
	Close() error
}
