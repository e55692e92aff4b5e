package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	Long:  `List all pricing experiments with their status and exposure totals.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		experiments, err := s.ListExperiments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if len(experiments) == 0 {
			fmt.Println("No experiments yet. Create one with: priceforge create")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS\tVARIANTS\tTRAFFIC\tEXPOSURES\tCONVERSIONS\tWINNER\tCREATED")

		for _, e := range experiments {
			totals, err := s.VariantTotals(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("failed to get totals for %s: %w", e.Name, err)
			}

			exposures := 0
			conversions := 0
			for _, t := range totals {
				exposures += t.Exposures
				conversions += t.Conversions
			}

			winner := e.WinningVariant
			if winner == "" {
				winner = "-"
			}

			fmt.Fprintf(w, "%s\t%s\t%d\t%g%%\t%d\t%d\t%s\t%s\n",
				e.Name,
				strings.ToUpper(string(e.Status)),
				len(e.Variants),
				e.TrafficPercentage,
				exposures,
				conversions,
				winner,
				e.CreatedAt.Format("2006-01-02"),
			)
		}

		return w.Flush()
	})
}
