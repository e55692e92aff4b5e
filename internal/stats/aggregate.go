// Package stats aggregates exposure ledgers and decides statistical
// significance for pricing experiments.
package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/experiment"
)

// Aggregate computes the per-variant results snapshot from the exposure
// ledger. Every declared variant gets an entry, zero-valued when it has no
// exposures. Degenerate data (no exposures, no conversions) yields the
// documented zero defaults, never an error.
func Aggregate(e *experiment.Experiment, rows []experiment.Exposure) map[string]experiment.VariantResult {
	type bucket struct {
		exposures   int
		conversions int
		revenue     decimal.Decimal
	}
	buckets := make(map[string]*bucket, len(e.Variants))
	for _, v := range e.Variants {
		buckets[v.Name] = &bucket{}
	}

	for _, row := range rows {
		b, ok := buckets[row.VariantName]
		if !ok {
			// Exposure for a variant no longer declared; skip rather
			// than invent a variant the experiment does not define.
			continue
		}
		b.exposures++
		if row.Converted {
			b.conversions++
			b.revenue = b.revenue.Add(row.Revenue)
		}
	}

	results := make(map[string]experiment.VariantResult, len(e.Variants))
	for _, v := range e.Variants {
		b := buckets[v.Name]
		r := experiment.VariantResult{
			Exposures:    b.exposures,
			Conversions:  b.conversions,
			TotalRevenue: b.revenue,
		}
		if b.exposures > 0 {
			rate := float64(b.conversions) / float64(b.exposures) * 100
			r.ConversionRate = math.Round(rate*100) / 100
		}
		if b.conversions > 0 {
			r.AvgRevenuePerConversion = b.revenue.DivRound(decimal.NewFromInt(int64(b.conversions)), 2)
		} else {
			r.AvgRevenuePerConversion = decimal.Zero
		}
		results[v.Name] = r
	}
	return results
}
