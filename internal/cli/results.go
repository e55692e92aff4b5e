package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/stats"
	"github.com/priceforge/priceforge/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <name>",
	Short: "Show detailed results for an experiment",
	Long:  `Show per-variant exposures, conversions, revenue, confidence intervals, and the significance verdict.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		e, err := s.GetExperiment(ctx, args[0])
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("experiment '%s' not found", args[0])
			}
			return fmt.Errorf("failed to get experiment: %w", err)
		}

		rows, err := s.ListExposures(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("failed to load exposures: %w", err)
		}
		results := stats.Aggregate(e, rows)

		fmt.Printf("EXPERIMENT: %s\n", e.Name)
		fmt.Printf("STATUS: %s\n", e.Status)
		if e.Description != "" {
			fmt.Printf("DESCRIPTION: %s\n", e.Description)
		}
		fmt.Printf("CONFIDENCE LEVEL: %g%%\n", e.ConfidenceLevel)
		fmt.Printf("MIN SAMPLE SIZE: %d\n", e.MinSampleSize)
		fmt.Printf("CREATED: %s\n", e.CreatedAt.Format("2006-01-02"))
		fmt.Println()

		control, hasControl := results[experiment.ControlName]

		fmt.Printf("VARIANT           EXPOSURES  CONVERSIONS  RATE     REVENUE     %g%% CI\n", e.ConfidenceLevel)
		fmt.Println(strings.Repeat("─", 80))

		leading := leadingVariant(e, results)
		for _, v := range e.Variants {
			r := results[v.Name]

			ciStr := "N/A"
			if r.Exposures > 0 {
				lo, hi := stats.WilsonInterval(r.Conversions, r.Exposures, e.ConfidenceLevel)
				ciStr = fmt.Sprintf("[%.1f%%, %.1f%%]", lo*100, hi*100)
			}

			indicator := ""
			if v.Name == leading && len(e.Variants) > 1 {
				indicator = " ← LEADING"
			}

			name := v.Name
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-9d  %-11d  %-7s  %-10s  %s%s\n",
				name,
				r.Exposures,
				r.Conversions,
				fmt.Sprintf("%.2f%%", r.ConversionRate),
				r.TotalRevenue.StringFixed(2),
				ciStr,
				indicator,
			)
		}

		fmt.Println()

		if !hasControl || len(e.Variants) < 2 {
			return nil
		}

		for _, v := range e.Variants {
			if v.Name == experiment.ControlName {
				continue
			}
			r := results[v.Name]
			conf := stats.Confidence(control, r) * 100
			if stats.IsSignificant(control, r, e.MinSampleSize, e.ConfidenceLevel) {
				fmt.Printf("'%s' vs control: %.1f%% confident, significant at the %g%% level\n",
					v.Name, conf, e.ConfidenceLevel)
			} else {
				fmt.Printf("'%s' vs control: %.1f%% confident, not yet significant\n", v.Name, conf)
			}
		}

		return nil
	})
}

// leadingVariant picks the variant with the highest conversion rate, for
// display only; winner selection is stricter and also requires revenue.
func leadingVariant(e *experiment.Experiment, results map[string]experiment.VariantResult) string {
	best := ""
	bestRate := -1.0
	for _, v := range e.Variants {
		if r := results[v.Name]; r.ConversionRate > bestRate {
			best = v.Name
			bestRate = r.ConversionRate
		}
	}
	return best
}
