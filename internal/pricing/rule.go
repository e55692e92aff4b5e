// Package pricing implements conditional price adjustment rules and the
// evaluator that folds them into a unit's effective price.
package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType is the closed set of ways a rule changes a price.
type AdjustmentType string

const (
	// AdjustmentPercentage adds price * value/100 to the price.
	AdjustmentPercentage AdjustmentType = "percentage"
	// AdjustmentFixed adds the value directly to the price.
	AdjustmentFixed AdjustmentType = "fixed"
)

// Rule describes one price adjustment and its applicability window.
// Rules are immutable during evaluation; edits happen through the store.
type Rule struct {
	ID       uuid.UUID
	TenantID string
	SiteID   string // empty means all sites of the tenant
	Name     string

	// Conditions maps a unit attribute name to the value it must equal.
	// An empty map matches every unit in scope.
	Conditions map[string]string

	AdjustmentType  AdjustmentType
	AdjustmentValue decimal.Decimal
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal

	// Priority orders evaluation, higher first. Stackable controls whether
	// evaluation continues past this rule once it has been applied.
	Priority  int
	Stackable bool

	ValidFrom  *time.Time
	ValidUntil *time.Time
	IsActive   bool

	AppliedCount int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate rejects malformed rules before they can reach the evaluator.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.TenantID == "" {
		return fmt.Errorf("rule tenant is required")
	}
	switch r.AdjustmentType {
	case AdjustmentPercentage, AdjustmentFixed:
	default:
		return fmt.Errorf("unknown adjustment type %q (want %q or %q)",
			r.AdjustmentType, AdjustmentPercentage, AdjustmentFixed)
	}
	if r.MinPrice != nil && r.MaxPrice != nil && r.MinPrice.GreaterThan(*r.MaxPrice) {
		return fmt.Errorf("min price %s exceeds max price %s",
			r.MinPrice.StringFixed(2), r.MaxPrice.StringFixed(2))
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && r.ValidFrom.After(*r.ValidUntil) {
		return fmt.Errorf("valid_from is after valid_until")
	}
	return nil
}

// ValidAt reports whether the rule may be applied at the given time.
// Bounds are inclusive. Inactive rules are never valid.
func (r *Rule) ValidAt(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Matches reports whether every condition equals the unit's attribute.
// A condition key absent from attrs fails the match.
func (r *Rule) Matches(attrs map[string]string) bool {
	for key, want := range r.Conditions {
		got, ok := attrs[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}
