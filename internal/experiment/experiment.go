// Package experiment implements pricing A/B tests: the experiment model
// and lifecycle, deterministic visitor assignment, and the exposure record.
package experiment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/logx"
)

// Status is the experiment lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ControlName is the mandatory baseline variant name.
const ControlName = "control"

// ModifierType mirrors the rule adjustment kinds for variant price overlays.
type ModifierType string

const (
	ModifierNone       ModifierType = ""
	ModifierPercentage ModifierType = "percentage"
	ModifierFixed      ModifierType = "fixed"
)

// Variant is one arm of an experiment. Weight is relative; weights
// conventionally sum to 100 but are not required to.
type Variant struct {
	Name          string          `json:"name"`
	Weight        float64         `json:"weight"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	ModifierType  ModifierType    `json:"modifier_type,omitempty"`
}

// ModifiedPrice applies the variant's price modifier to a resolved price.
// The control variant and variants without a modifier return price unchanged.
func (v Variant) ModifiedPrice(price decimal.Decimal) decimal.Decimal {
	switch v.ModifierType {
	case ModifierPercentage:
		return price.Add(price.Mul(v.PriceModifier).Div(decimal.NewFromInt(100)))
	case ModifierFixed:
		return price.Add(v.PriceModifier)
	default:
		return price
	}
}

// VariantResult is the aggregated outcome snapshot for one variant.
// ConversionRate is a percentage rounded to two decimals.
type VariantResult struct {
	Exposures               int             `json:"exposures"`
	Conversions             int             `json:"conversions"`
	ConversionRate          float64         `json:"conversion_rate"`
	TotalRevenue            decimal.Decimal `json:"total_revenue"`
	AvgRevenuePerConversion decimal.Decimal `json:"avg_revenue_per_conversion"`
}

// Experiment is a named pricing test.
type Experiment struct {
	ID          uuid.UUID
	TenantID    string
	SiteID      string // empty means all sites of the tenant
	Name        string
	Description string
	Status      Status

	Variants          []Variant
	TrafficPercentage float64
	MinSampleSize     int
	ConfidenceLevel   float64
	DurationDays      int

	StartedAt *time.Time
	EndedAt   *time.Time

	// Results and WinningVariant are set once, at completion, and are
	// immutable afterwards.
	Results        map[string]VariantResult
	WinningVariant string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exposure is one visitor's recorded assignment, with its conversion
// outcome. Rows are append-only; a conversion updates the visitor's
// existing row through the store, never this package.
type Exposure struct {
	ID           uuid.UUID
	ExperimentID uuid.UUID
	VisitorID    string
	VariantName  string
	PriceShown   decimal.Decimal
	Converted    bool
	Revenue      decimal.Decimal
	ConvertedAt  *time.Time
	CreatedAt    time.Time
}

// Validate rejects malformed definitions before they can run. It also emits
// the weight-sum warning: an out-of-range bucket silently falls back to the
// first variant, so weights not summing to 100 usually indicate a typo.
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if e.TenantID == "" {
		return fmt.Errorf("experiment tenant is required")
	}
	if len(e.Variants) == 0 {
		return fmt.Errorf("experiment needs at least one variant")
	}

	controls := 0
	seen := make(map[string]bool, len(e.Variants))
	sum := 0.0
	for _, v := range e.Variants {
		if v.Name == "" {
			return fmt.Errorf("variant name is required")
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate variant name %q", v.Name)
		}
		seen[v.Name] = true
		if v.Name == ControlName {
			controls++
		}
		if v.Weight < 0 {
			return fmt.Errorf("variant %q has negative weight", v.Name)
		}
		sum += v.Weight
		switch v.ModifierType {
		case ModifierNone, ModifierPercentage, ModifierFixed:
		default:
			return fmt.Errorf("variant %q has unknown modifier type %q", v.Name, v.ModifierType)
		}
	}
	if controls != 1 {
		return fmt.Errorf("experiment needs exactly one %q variant, got %d", ControlName, controls)
	}
	if sum == 0 {
		return fmt.Errorf("variant weights sum to zero")
	}
	if sum != 100 {
		logx.Warn().
			Str("experiment", e.Name).
			Float64("weight_sum", sum).
			Msg("variant weights do not sum to 100; out-of-range buckets fall back to the first variant")
	}

	if e.TrafficPercentage < 0 || e.TrafficPercentage > 100 {
		return fmt.Errorf("traffic percentage %.2f out of range [0, 100]", e.TrafficPercentage)
	}
	if e.MinSampleSize < 0 {
		return fmt.Errorf("min sample size must not be negative")
	}
	if e.ConfidenceLevel <= 0 || e.ConfidenceLevel >= 100 {
		return fmt.Errorf("confidence level %.2f out of range (0, 100)", e.ConfidenceLevel)
	}
	return nil
}

// CanTransition reports whether the lifecycle allows moving to next.
// Completed is terminal.
func (e *Experiment) CanTransition(next Status) bool {
	switch e.Status {
	case StatusDraft:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusPaused || next == StatusCompleted
	case StatusPaused:
		return next == StatusRunning || next == StatusCompleted
	default:
		return false
	}
}

// Start moves the experiment to running, stamping StartedAt on first start.
func (e *Experiment) Start(now time.Time) error {
	if !e.CanTransition(StatusRunning) {
		return fmt.Errorf("cannot start experiment in state %q", e.Status)
	}
	e.Status = StatusRunning
	if e.StartedAt == nil {
		e.StartedAt = &now
	}
	return nil
}

// Pause suspends assignment. Paused experiments accept no new exposures.
func (e *Experiment) Pause() error {
	if !e.CanTransition(StatusPaused) {
		return fmt.Errorf("cannot pause experiment in state %q", e.Status)
	}
	e.Status = StatusPaused
	return nil
}

// Complete finalizes the experiment with its results snapshot and verdict.
func (e *Experiment) Complete(results map[string]VariantResult, winner string, now time.Time) error {
	if !e.CanTransition(StatusCompleted) {
		return fmt.Errorf("cannot complete experiment in state %q", e.Status)
	}
	e.Status = StatusCompleted
	e.EndedAt = &now
	e.Results = results
	e.WinningVariant = winner
	return nil
}
