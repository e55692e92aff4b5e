package pricing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Applied records one rule's effect during a resolution.
type Applied struct {
	RuleID uuid.UUID
	Name   string
	Price  decimal.Decimal // price after this rule, clamps included
}

// Resolution is the outcome of folding a rule set over a base price.
type Resolution struct {
	Price   decimal.Decimal
	Applied []Applied
}

// Resolve computes a unit's effective price at the given evaluation time.
//
// Candidates are filtered to valid rules whose conditions all match attrs,
// sorted by priority descending (ties keep candidate order), then folded
// starting from basePrice. A non-stackable rule stops the fold once applied.
// With no valid matching rules the base price is returned unchanged.
func Resolve(basePrice decimal.Decimal, attrs map[string]string, candidates []Rule, at time.Time) Resolution {
	applicable := make([]Rule, 0, len(candidates))
	for _, r := range candidates {
		if r.ValidAt(at) && r.Matches(attrs) {
			applicable = append(applicable, r)
		}
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority > applicable[j].Priority
	})

	res := Resolution{Price: basePrice}
	for _, r := range applicable {
		adjusted := apply(res.Price, r)
		res.Price = adjusted
		res.Applied = append(res.Applied, Applied{RuleID: r.ID, Name: r.Name, Price: adjusted})
		if !r.Stackable {
			break
		}
	}
	return res
}

// ResolvePrice is Resolve without the audit trail.
func ResolvePrice(basePrice decimal.Decimal, attrs map[string]string, candidates []Rule, at time.Time) decimal.Decimal {
	return Resolve(basePrice, attrs, candidates, at).Price
}

func apply(price decimal.Decimal, r Rule) decimal.Decimal {
	var adjusted decimal.Decimal
	switch r.AdjustmentType {
	case AdjustmentPercentage:
		adjusted = price.Add(price.Mul(r.AdjustmentValue).Div(hundred))
	default:
		adjusted = price.Add(r.AdjustmentValue)
	}

	if r.MinPrice != nil && adjusted.LessThan(*r.MinPrice) {
		adjusted = *r.MinPrice
	}
	if r.MaxPrice != nil && adjusted.GreaterThan(*r.MaxPrice) {
		adjusted = *r.MaxPrice
	}
	return adjusted
}
