package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/stats"
	"github.com/priceforge/priceforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newWinnerCmd())
}

func newWinnerCmd() *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "winner <name>",
		Short: "Show the winner verdict for an experiment",
		Long: `Run winner selection over the exposure ledger. The control wins unless
a challenger both out-earns it and clears statistical significance.

By default the verdict is only printed. With --complete the experiment is
completed and the verdict and results snapshot are persisted.

Example:
  priceforge winner summer-discount --complete`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				e, err := s.GetExperiment(ctx, args[0])
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("experiment '%s' not found", args[0])
					}
					return err
				}

				if e.Status == experiment.StatusCompleted {
					fmt.Printf("Experiment '%s' is already completed; winner: %s\n", e.Name, e.WinningVariant)
					return nil
				}

				rows, err := s.ListExposures(ctx, e.ID)
				if err != nil {
					return fmt.Errorf("failed to load exposures: %w", err)
				}

				results := stats.Aggregate(e, rows)
				winner, ok := stats.WinnerFromResults(e, results)
				if !ok {
					return fmt.Errorf("experiment '%s' has no control data to compare against", e.Name)
				}

				if winner == experiment.ControlName {
					fmt.Printf("Winner: %s (no challenger beat it with significance)\n", winner)
				} else {
					fmt.Printf("Winner: %s\n", winner)
				}

				if !persist {
					return nil
				}

				if err := e.Complete(results, winner, time.Now()); err != nil {
					return err
				}
				if err := s.UpdateExperiment(ctx, e); err != nil {
					return fmt.Errorf("failed to update experiment: %w", err)
				}
				fmt.Printf("Experiment '%s' completed.\n", e.Name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&persist, "complete", false, "complete the experiment and persist the verdict")
	return cmd
}
