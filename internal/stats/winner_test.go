package stats_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/stats"
)

func winnerExperiment() *experiment.Experiment {
	return &experiment.Experiment{
		ID:       uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002"),
		TenantID: "t1",
		Name:     "summer-discount",
		Variants: []experiment.Variant{
			{Name: experiment.ControlName, Weight: 50},
			{Name: "discount_10", Weight: 50},
		},
		TrafficPercentage: 100,
		MinSampleSize:     100,
		ConfidenceLevel:   95,
	}
}

// exposures fabricates a ledger slice for one variant: total rows, the first
// converted of them converting for revenueEach apiece.
func exposures(e *experiment.Experiment, variant string, total, converted int, revenueEach string) []experiment.Exposure {
	rev, err := decimal.NewFromString(revenueEach)
	if err != nil {
		panic(err)
	}
	rows := make([]experiment.Exposure, 0, total)
	for i := 0; i < total; i++ {
		x := experiment.Exposure{
			ExperimentID: e.ID,
			VisitorID:    fmt.Sprintf("%s-visitor-%d", variant, i),
			VariantName:  variant,
		}
		if i < converted {
			x.Converted = true
			x.Revenue = rev
		}
		rows = append(rows, x)
	}
	return rows
}

func TestAggregate(t *testing.T) {
	e := winnerExperiment()
	rows := append(
		exposures(e, experiment.ControlName, 1000, 50, "50"),
		exposures(e, "discount_10", 1000, 70, "40")...,
	)

	results := stats.Aggregate(e, rows)

	control := results[experiment.ControlName]
	if control.Exposures != 1000 || control.Conversions != 50 {
		t.Fatalf("control: got %d/%d, want 50/1000", control.Conversions, control.Exposures)
	}
	if control.ConversionRate != 5.0 {
		t.Errorf("control rate: got %.2f, want 5.00", control.ConversionRate)
	}
	if !control.TotalRevenue.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("control revenue: got %s, want 2500", control.TotalRevenue)
	}
	if !control.AvgRevenuePerConversion.Equal(decimal.NewFromInt(50)) {
		t.Errorf("control avg revenue: got %s, want 50", control.AvgRevenuePerConversion)
	}

	challenger := results["discount_10"]
	if challenger.ConversionRate != 7.0 {
		t.Errorf("challenger rate: got %.2f, want 7.00", challenger.ConversionRate)
	}
	if !challenger.TotalRevenue.Equal(decimal.NewFromInt(2800)) {
		t.Errorf("challenger revenue: got %s, want 2800", challenger.TotalRevenue)
	}
	if !challenger.AvgRevenuePerConversion.Equal(decimal.NewFromInt(40)) {
		t.Errorf("challenger avg revenue: got %s, want 40", challenger.AvgRevenuePerConversion)
	}
}

func TestAggregate_RateIsRounded(t *testing.T) {
	e := winnerExperiment()
	rows := append(
		exposures(e, experiment.ControlName, 3, 1, "10"),
		exposures(e, "discount_10", 0, 0, "0")...,
	)

	results := stats.Aggregate(e, rows)

	// 1/3 = 33.333...%, rounded to two decimals.
	if got := results[experiment.ControlName].ConversionRate; got != 33.33 {
		t.Errorf("got rate %.4f, want 33.33", got)
	}
}

func TestAggregate_EmptyLedger(t *testing.T) {
	e := winnerExperiment()

	results := stats.Aggregate(e, nil)

	if len(results) != 2 {
		t.Fatalf("expected an entry per declared variant, got %d", len(results))
	}
	for name, r := range results {
		if r.Exposures != 0 || r.Conversions != 0 || r.ConversionRate != 0 {
			t.Errorf("variant %s: expected zero-valued result, got %+v", name, r)
		}
		if !r.TotalRevenue.IsZero() || !r.AvgRevenuePerConversion.IsZero() {
			t.Errorf("variant %s: expected zero revenue, got %+v", name, r)
		}
	}
}

func TestAggregate_SkipsUndeclaredVariants(t *testing.T) {
	e := winnerExperiment()
	rows := append(
		exposures(e, experiment.ControlName, 10, 1, "10"),
		exposures(e, "removed-variant", 500, 100, "10")...,
	)

	results := stats.Aggregate(e, rows)

	if _, ok := results["removed-variant"]; ok {
		t.Error("undeclared variant must not appear in results")
	}
	if results[experiment.ControlName].Exposures != 10 {
		t.Errorf("control exposures polluted: got %d, want 10", results[experiment.ControlName].Exposures)
	}
}

func TestDetermineWinner_ChallengerWins(t *testing.T) {
	e := winnerExperiment()
	// 71/1000 vs 50/1000 clears 95% significance, and the challenger
	// out-earns the control (2840 vs 2500).
	rows := append(
		exposures(e, experiment.ControlName, 1000, 50, "50"),
		exposures(e, "discount_10", 1000, 71, "40")...,
	)

	winner, ok := stats.DetermineWinner(e, rows)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if winner != "discount_10" {
		t.Errorf("got winner %q, want discount_10", winner)
	}
}

func TestDetermineWinner_NotSignificantKeepsControl(t *testing.T) {
	e := winnerExperiment()
	// 70/1000 vs 50/1000 misses the threshold; revenue advantage alone
	// must not crown the challenger.
	rows := append(
		exposures(e, experiment.ControlName, 1000, 50, "50"),
		exposures(e, "discount_10", 1000, 70, "40")...,
	)

	winner, ok := stats.DetermineWinner(e, rows)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if winner != experiment.ControlName {
		t.Errorf("got winner %q, want control", winner)
	}
}

func TestDetermineWinner_SignificantButLowerRevenueKeepsControl(t *testing.T) {
	e := winnerExperiment()
	// Twice the conversion rate, but the discount cannibalizes revenue
	// (2000 vs 2500). The control keeps the crown.
	rows := append(
		exposures(e, experiment.ControlName, 1000, 50, "50"),
		exposures(e, "discount_10", 1000, 100, "20")...,
	)

	winner, ok := stats.DetermineWinner(e, rows)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if winner != experiment.ControlName {
		t.Errorf("got winner %q, want control", winner)
	}
}

func TestDetermineWinner_BestOfMultipleChallengers(t *testing.T) {
	e := winnerExperiment()
	e.Variants = append(e.Variants, experiment.Variant{Name: "discount_20", Weight: 0})

	rows := append(
		exposures(e, experiment.ControlName, 1000, 50, "50"),
		exposures(e, "discount_10", 1000, 71, "40")...,
	)
	rows = append(rows, exposures(e, "discount_20", 1000, 100, "35")...)

	winner, ok := stats.DetermineWinner(e, rows)
	if !ok {
		t.Fatal("expected a verdict")
	}
	// Both challengers are significant; discount_20 earns more (3500).
	if winner != "discount_20" {
		t.Errorf("got winner %q, want discount_20", winner)
	}
}

func TestDetermineWinner_NoControlData(t *testing.T) {
	e := winnerExperiment()
	e.Variants = []experiment.Variant{{Name: "discount_10", Weight: 100}}

	_, ok := stats.DetermineWinner(e, exposures(e, "discount_10", 100, 10, "10"))
	if ok {
		t.Error("expected no verdict without a control")
	}
}

func TestDetermineWinner_EmptyLedgerKeepsControl(t *testing.T) {
	e := winnerExperiment()

	winner, ok := stats.DetermineWinner(e, nil)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if winner != experiment.ControlName {
		t.Errorf("got winner %q, want control", winner)
	}
}
