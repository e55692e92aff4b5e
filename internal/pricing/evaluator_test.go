package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/pricing"
)

var evalTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func activeRule(name string, typ pricing.AdjustmentType, value string, priority int, stackable bool) pricing.Rule {
	return pricing.Rule{
		TenantID:        "t1",
		Name:            name,
		AdjustmentType:  typ,
		AdjustmentValue: dec(value),
		Priority:        priority,
		Stackable:       stackable,
		IsActive:        true,
	}
}

func TestResolve_NoRules(t *testing.T) {
	res := pricing.Resolve(dec("100"), nil, nil, evalTime)

	if !res.Price.Equal(dec("100")) {
		t.Errorf("got price %s, want 100", res.Price)
	}
	if len(res.Applied) != 0 {
		t.Errorf("expected no applied rules, got %d", len(res.Applied))
	}
}

func TestResolve_StackingStopsAtNonStackable(t *testing.T) {
	// +10% (priority 5, stackable), then +5 fixed (priority 3, not
	// stackable) stops the fold before the priority 1 rule.
	rules := []pricing.Rule{
		activeRule("summer", pricing.AdjustmentPercentage, "10", 5, true),
		activeRule("loyalty", pricing.AdjustmentFixed, "5", 3, false),
		activeRule("never-reached", pricing.AdjustmentFixed, "100", 1, true),
	}

	res := pricing.Resolve(dec("100"), nil, rules, evalTime)

	if !res.Price.Equal(dec("115")) {
		t.Errorf("got price %s, want 115", res.Price)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("expected 2 applied rules, got %d", len(res.Applied))
	}
	if res.Applied[0].Name != "summer" || res.Applied[1].Name != "loyalty" {
		t.Errorf("got application order %s, %s", res.Applied[0].Name, res.Applied[1].Name)
	}
	if !res.Applied[0].Price.Equal(dec("110")) {
		t.Errorf("got intermediate price %s, want 110", res.Applied[0].Price)
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	// Candidate order 1, 5, 3 must be applied as 5, 3, 1.
	rules := []pricing.Rule{
		activeRule("low", pricing.AdjustmentFixed, "1", 1, true),
		activeRule("high", pricing.AdjustmentFixed, "1", 5, true),
		activeRule("mid", pricing.AdjustmentFixed, "1", 3, true),
	}

	res := pricing.Resolve(dec("100"), nil, rules, evalTime)

	want := []string{"high", "mid", "low"}
	if len(res.Applied) != len(want) {
		t.Fatalf("expected %d applied rules, got %d", len(want), len(res.Applied))
	}
	for i, name := range want {
		if res.Applied[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, res.Applied[i].Name, name)
		}
	}
}

func TestResolve_MinPriceClamp(t *testing.T) {
	r := activeRule("half-off", pricing.AdjustmentPercentage, "-50", 1, true)
	r.MinPrice = decPtr("60")

	res := pricing.Resolve(dec("100"), nil, []pricing.Rule{r}, evalTime)

	// -50% would land at 50; the floor lifts it to 60.
	if !res.Price.Equal(dec("60")) {
		t.Errorf("got price %s, want 60", res.Price)
	}
}

func TestResolve_MaxPriceClamp(t *testing.T) {
	r := activeRule("surge", pricing.AdjustmentPercentage, "50", 1, true)
	r.MaxPrice = decPtr("120")

	res := pricing.Resolve(dec("100"), nil, []pricing.Rule{r}, evalTime)

	if !res.Price.Equal(dec("120")) {
		t.Errorf("got price %s, want 120", res.Price)
	}
}

func TestResolve_ClampAppliesPerRule(t *testing.T) {
	// The clamp belongs to the rule that carries it; a later rule can
	// still move the price past it.
	discounted := activeRule("discount", pricing.AdjustmentPercentage, "-50", 5, true)
	discounted.MinPrice = decPtr("60")
	surcharge := activeRule("fee", pricing.AdjustmentFixed, "-10", 1, true)

	res := pricing.Resolve(dec("100"), nil, []pricing.Rule{discounted, surcharge}, evalTime)

	if !res.Price.Equal(dec("50")) {
		t.Errorf("got price %s, want 50", res.Price)
	}
}

func TestResolve_ConditionsFailClosed(t *testing.T) {
	r := activeRule("large-units", pricing.AdjustmentPercentage, "10", 1, true)
	r.Conditions = map[string]string{"size": "large"}

	// Attribute absent: rule must not apply.
	res := pricing.Resolve(dec("100"), map[string]string{"floor": "2"}, []pricing.Rule{r}, evalTime)
	if !res.Price.Equal(dec("100")) {
		t.Errorf("absent attribute: got price %s, want 100", res.Price)
	}

	// Attribute mismatched: rule must not apply.
	res = pricing.Resolve(dec("100"), map[string]string{"size": "small"}, []pricing.Rule{r}, evalTime)
	if !res.Price.Equal(dec("100")) {
		t.Errorf("mismatched attribute: got price %s, want 100", res.Price)
	}

	// Attribute matched: rule applies.
	res = pricing.Resolve(dec("100"), map[string]string{"size": "large"}, []pricing.Rule{r}, evalTime)
	if !res.Price.Equal(dec("110")) {
		t.Errorf("matched attribute: got price %s, want 110", res.Price)
	}
}

func TestResolve_ValidityWindow(t *testing.T) {
	from := evalTime.Add(-24 * time.Hour)
	until := evalTime.Add(24 * time.Hour)

	r := activeRule("window", pricing.AdjustmentFixed, "10", 1, true)
	r.ValidFrom = &from
	r.ValidUntil = &until

	inside := pricing.ResolvePrice(dec("100"), nil, []pricing.Rule{r}, evalTime)
	if !inside.Equal(dec("110")) {
		t.Errorf("inside window: got %s, want 110", inside)
	}

	before := pricing.ResolvePrice(dec("100"), nil, []pricing.Rule{r}, from.Add(-time.Hour))
	if !before.Equal(dec("100")) {
		t.Errorf("before window: got %s, want 100", before)
	}

	after := pricing.ResolvePrice(dec("100"), nil, []pricing.Rule{r}, until.Add(time.Hour))
	if !after.Equal(dec("100")) {
		t.Errorf("after window: got %s, want 100", after)
	}

	// Bounds are inclusive.
	atBound := pricing.ResolvePrice(dec("100"), nil, []pricing.Rule{r}, until)
	if !atBound.Equal(dec("110")) {
		t.Errorf("at window bound: got %s, want 110", atBound)
	}
}

func TestResolve_InactiveRuleSkipped(t *testing.T) {
	r := activeRule("disabled", pricing.AdjustmentFixed, "10", 1, true)
	r.IsActive = false

	got := pricing.ResolvePrice(dec("100"), nil, []pricing.Rule{r}, evalTime)
	if !got.Equal(dec("100")) {
		t.Errorf("got %s, want 100", got)
	}
}

func TestRuleValidate(t *testing.T) {
	valid := activeRule("ok", pricing.AdjustmentPercentage, "10", 1, true)
	if err := valid.Validate(); err != nil {
		t.Errorf("valid rule rejected: %v", err)
	}

	noName := valid
	noName.Name = ""
	if err := noName.Validate(); err == nil {
		t.Error("expected error for empty name")
	}

	noTenant := valid
	noTenant.TenantID = ""
	if err := noTenant.Validate(); err == nil {
		t.Error("expected error for empty tenant")
	}

	badType := valid
	badType.AdjustmentType = "multiplier"
	if err := badType.Validate(); err == nil {
		t.Error("expected error for unknown adjustment type")
	}

	invertedClamp := valid
	invertedClamp.MinPrice = decPtr("100")
	invertedClamp.MaxPrice = decPtr("50")
	if err := invertedClamp.Validate(); err == nil {
		t.Error("expected error for min > max")
	}

	from := evalTime
	until := evalTime.Add(-time.Hour)
	invertedWindow := valid
	invertedWindow.ValidFrom = &from
	invertedWindow.ValidUntil = &until
	if err := invertedWindow.Validate(); err == nil {
		t.Error("expected error for valid_from after valid_until")
	}
}
