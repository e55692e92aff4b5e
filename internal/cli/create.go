package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		tenant      string
		site        string
		description string
		variants    string
		traffic     float64
		minSample   int
		confidence  float64
		duration    int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a pricing experiment",
		Long: `Create a pricing experiment. Variants are "name:weight" pairs with an
optional price modifier, "name:weight:modifier:type". Exactly one variant
must be named "control". Without --variants the command prompts
interactively.

Examples:
  priceforge create summer-prices --tenant acme --variants "control:50,discount_10:50:-10:percentage"
  priceforge create rounding-test --tenant acme \
      --variants "control:34,minus_1:33:-1:fixed,plus_1:33:1:fixed" --traffic 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if variants == "" {
				var err error
				variants, err = promptVariants()
				if err != nil {
					return err
				}
			}
			parsed, err := parseVariants(variants)
			if err != nil {
				return err
			}

			e := &experiment.Experiment{
				TenantID:          tenant,
				SiteID:            site,
				Name:              args[0],
				Description:       description,
				Status:            experiment.StatusDraft,
				Variants:          parsed,
				TrafficPercentage: traffic,
				MinSampleSize:     minSample,
				ConfidenceLevel:   confidence,
				DurationDays:      duration,
			}
			if err := e.Validate(); err != nil {
				return fmt.Errorf("invalid experiment: %w", err)
			}

			return withStore(func(s *store.SQLiteStore) error {
				if err := s.CreateExperiment(context.Background(), e); err != nil {
					return fmt.Errorf("failed to create experiment: %w", err)
				}

				fmt.Printf("Created experiment '%s' with %d variants:\n", e.Name, len(e.Variants))
				for _, v := range e.Variants {
					if v.ModifierType == experiment.ModifierNone {
						fmt.Printf("  %s (weight %g)\n", v.Name, v.Weight)
					} else {
						fmt.Printf("  %s (weight %g, %s %s)\n", v.Name, v.Weight, v.ModifierType, v.PriceModifier)
					}
				}
				fmt.Println("\nStart it with: priceforge start " + e.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "owning tenant (required)")
	cmd.Flags().StringVar(&site, "site", "", "restrict to one site (optional)")
	cmd.Flags().StringVar(&description, "description", "", "what this experiment tests")
	cmd.Flags().StringVar(&variants, "variants", "", `variants as "name:weight[:modifier:type],..."`)
	cmd.Flags().Float64Var(&traffic, "traffic", 100, "percentage of eligible traffic included (default from env)")
	cmd.Flags().IntVar(&minSample, "min-sample", 0, "minimum exposures per variant before significance (default from env)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence level 90, 95, or 99 (default from env)")
	cmd.Flags().IntVar(&duration, "duration", 0, "planned duration in days (default from env)")
	cmd.MarkFlagRequired("tenant")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		// Zero is a legal traffic percentage, so the flag's presence
		// decides the fallback, not its value.
		if !cmd.Flags().Changed("traffic") {
			traffic = cfg.TrafficPercentage
		}
		if minSample == 0 {
			minSample = cfg.MinSampleSize
		}
		if confidence == 0 {
			confidence = cfg.ConfidenceLevel
		}
		if duration == 0 {
			duration = cfg.DurationDays
		}
	}

	return cmd
}

// parseVariants parses "name:weight" or "name:weight:modifier:type" specs.
func parseVariants(spec string) ([]experiment.Variant, error) {
	var variants []experiment.Variant
	for _, part := range strings.Split(spec, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 && len(fields) != 4 {
			return nil, fmt.Errorf("invalid variant %q (want name:weight or name:weight:modifier:type)", part)
		}

		weight, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight in %q: %w", part, err)
		}
		v := experiment.Variant{Name: fields[0], Weight: weight}

		if len(fields) == 4 {
			modifier, err := decimal.NewFromString(fields[2])
			if err != nil {
				return nil, fmt.Errorf("invalid modifier in %q: %w", part, err)
			}
			v.PriceModifier = modifier
			v.ModifierType = experiment.ModifierType(fields[3])
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// promptVariants interactively collects a variant spec.
func promptVariants() (string, error) {
	var parts []string

	for {
		label := "Variant name"
		defaultName := ""
		if len(parts) == 0 {
			defaultName = experiment.ControlName
		}

		name, err := runPrompt(promptui.Prompt{Label: label, Default: defaultName})
		if err != nil {
			return "", err
		}
		weight, err := runPrompt(promptui.Prompt{Label: "Weight", Default: "50"})
		if err != nil {
			return "", err
		}

		part := name + ":" + weight
		if name != experiment.ControlName {
			modType, err := runSelect(promptui.Select{
				Label: "Price modifier type",
				Items: []string{"none", "percentage", "fixed"},
				Size:  3,
			})
			if err != nil {
				return "", err
			}
			if modType != "none" {
				value, err := runPrompt(promptui.Prompt{Label: "Modifier value (signed)", Default: "-10"})
				if err != nil {
					return "", err
				}
				part += ":" + value + ":" + modType
			}
		}
		parts = append(parts, part)

		more, err := runSelect(promptui.Select{
			Label: "Add another variant",
			Items: []string{"yes", "no"},
			Size:  2,
		})
		if err != nil {
			return "", err
		}
		if more == "no" {
			break
		}
	}

	return strings.Join(parts, ","), nil
}

func runPrompt(p promptui.Prompt) (string, error) {
	result, err := p.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}
	return strings.TrimSpace(result), nil
}

func runSelect(sel promptui.Select) (string, error) {
	_, result, err := sel.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}
	return result, nil
}
