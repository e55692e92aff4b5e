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
	rootCmd.AddCommand(newStartCmd("start"))
	rootCmd.AddCommand(newStartCmd("resume"))
	rootCmd.AddCommand(newPauseCmd())
	rootCmd.AddCommand(newCompleteCmd())
}

func newStartCmd(verb string) *cobra.Command {
	short := "Start a draft experiment"
	if verb == "resume" {
		short = "Resume a paused experiment"
	}
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateLifecycle(args[0], func(e *experiment.Experiment) error {
				return e.Start(time.Now())
			}, "Experiment '%s' is now running\n")
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <name>",
		Short: "Pause a running experiment",
		Long: `Pause a running experiment. Paused experiments accept no new
assignments; callers fall back to the resolved price.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateLifecycle(args[0], func(e *experiment.Experiment) error {
				return e.Pause()
			}, "Experiment '%s' paused\n")
		},
	}
}

func newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <name>",
		Short: "Complete an experiment and freeze its verdict",
		Long: `Complete an experiment: aggregate the exposure ledger, determine the
winner, and freeze both into the experiment record. Completion is terminal.`,
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

				rows, err := s.ListExposures(ctx, e.ID)
				if err != nil {
					return fmt.Errorf("failed to load exposures: %w", err)
				}

				results := stats.Aggregate(e, rows)
				winner, ok := stats.WinnerFromResults(e, results)
				if !ok {
					return fmt.Errorf("experiment '%s' has no control variant to compare against", e.Name)
				}

				if err := e.Complete(results, winner, time.Now()); err != nil {
					return err
				}
				if err := s.UpdateExperiment(ctx, e); err != nil {
					return err
				}

				fmt.Printf("Experiment '%s' completed. Winner: %s\n", e.Name, winner)
				return nil
			})
		},
	}
}

func updateLifecycle(name string, transition func(*experiment.Experiment) error, doneFormat string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		e, err := s.GetExperiment(ctx, name)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("experiment '%s' not found", name)
			}
			return err
		}

		if err := transition(e); err != nil {
			return err
		}
		if err := s.UpdateExperiment(ctx, e); err != nil {
			return err
		}

		fmt.Printf(doneFormat, e.Name)
		return nil
	})
}
