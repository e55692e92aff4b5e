package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newExposeCmd())
	rootCmd.AddCommand(newConvertCmd())
}

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <name> <visitor>",
		Short: "Show a visitor's deterministic variant assignment",
		Long: `Show which variant a visitor would receive. Assignment is a pure hash
of the visitor and experiment ids, so the answer never changes for a given
pair; this command records nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				e, err := s.GetExperiment(context.Background(), args[0])
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("experiment '%s' not found", args[0])
					}
					return err
				}

				a := experiment.Assign(args[1], e)
				if !a.InExperiment {
					fmt.Printf("Visitor '%s' is outside the sampled traffic (%g%%)\n",
						args[1], e.TrafficPercentage)
					return nil
				}
				fmt.Printf("Visitor '%s' -> variant '%s'\n", args[1], a.Variant.Name)
				return nil
			})
		},
	}
}

func newExposeCmd() *cobra.Command {
	var priceShown string

	cmd := &cobra.Command{
		Use:   "expose <name> <visitor>",
		Short: "Record a visitor's exposure",
		Long: `Assign the visitor and append the exposure to the ledger. Only running
experiments accept exposures; visitors outside the sampled traffic are
never recorded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shown, err := parseMoney(priceShown)
			if err != nil {
				return err
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				e, err := s.GetExperiment(ctx, args[0])
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("experiment '%s' not found", args[0])
					}
					return err
				}
				if e.Status != experiment.StatusRunning {
					return fmt.Errorf("experiment '%s' is %s; only running experiments accept exposures", e.Name, e.Status)
				}

				a := experiment.Assign(args[1], e)
				if !a.InExperiment {
					fmt.Printf("Visitor '%s' is outside the sampled traffic; no exposure recorded\n", args[1])
					return nil
				}

				x := &experiment.Exposure{
					ExperimentID: e.ID,
					VisitorID:    args[1],
					VariantName:  a.Variant.Name,
				}
				if shown != nil {
					x.PriceShown = *shown
				}
				if err := s.RecordExposure(ctx, x); err != nil {
					return err
				}

				fmt.Printf("Recorded exposure: visitor '%s', variant '%s'\n", args[1], a.Variant.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&priceShown, "price-shown", "", "price shown to the visitor")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var revenue string

	cmd := &cobra.Command{
		Use:   "convert <name> <visitor>",
		Short: "Mark a visitor's exposure as converted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := parseMoney(revenue)
			if err != nil {
				return err
			}
			if rev == nil {
				return fmt.Errorf("--revenue is required")
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				e, err := s.GetExperiment(ctx, args[0])
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("experiment '%s' not found", args[0])
					}
					return err
				}

				err = s.MarkConverted(ctx, e.ID, args[1], *rev, time.Now())
				if err == store.ErrNotFound {
					return fmt.Errorf("no exposure for visitor '%s' in experiment '%s'", args[1], e.Name)
				}
				if err != nil {
					return err
				}

				fmt.Printf("Recorded conversion: visitor '%s', revenue %s\n", args[1], rev.StringFixed(2))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&revenue, "revenue", "", "conversion revenue (required)")
	cmd.MarkFlagRequired("revenue")
	return cmd
}
