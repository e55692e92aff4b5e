package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/pricing"
	"github.com/priceforge/priceforge/internal/store"
)

func init() {
	ruleCmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage pricing rules",
	}
	ruleCmd.AddCommand(newRuleAddCmd())
	ruleCmd.AddCommand(newRuleListCmd())
	ruleCmd.AddCommand(newRuleSetActiveCmd("enable", true))
	ruleCmd.AddCommand(newRuleSetActiveCmd("disable", false))
	ruleCmd.AddCommand(newRuleDeleteCmd())
	rootCmd.AddCommand(ruleCmd)
}

func newRuleAddCmd() *cobra.Command {
	var (
		tenant     string
		site       string
		conditions []string
		adjType    string
		adjValue   string
		minPrice   string
		maxPrice   string
		priority   int
		stackable  bool
		validFrom  string
		validUntil string
		inactive   bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a pricing rule",
		Long: `Add a pricing rule. Conditions restrict the rule to units whose
attributes match; a rule without conditions matches every unit in scope.

Examples:
  priceforge rule add summer-surge --tenant acme --type percentage --value 10 --priority 5
  priceforge rule add small-box-promo --tenant acme --type fixed --value -5 \
      --condition category=small --condition customer_type=new \
      --min-price 20 --valid-until 2026-09-30 --stack=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conds, err := parseAttrs(conditions)
			if err != nil {
				return err
			}
			value, err := decimal.NewFromString(adjValue)
			if err != nil {
				return fmt.Errorf("invalid adjustment value %q: %w", adjValue, err)
			}
			min, err := parseMoney(minPrice)
			if err != nil {
				return err
			}
			max, err := parseMoney(maxPrice)
			if err != nil {
				return err
			}
			from, err := parseDate(validFrom)
			if err != nil {
				return err
			}
			until, err := parseDate(validUntil)
			if err != nil {
				return err
			}

			rule := &pricing.Rule{
				TenantID:        tenant,
				SiteID:          site,
				Name:            args[0],
				Conditions:      conds,
				AdjustmentType:  pricing.AdjustmentType(adjType),
				AdjustmentValue: value,
				MinPrice:        min,
				MaxPrice:        max,
				Priority:        priority,
				Stackable:       stackable,
				ValidFrom:       from,
				ValidUntil:      until,
				IsActive:        !inactive,
			}
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			return withStore(func(s *store.SQLiteStore) error {
				if err := s.CreateRule(context.Background(), rule); err != nil {
					return fmt.Errorf("failed to create rule: %w", err)
				}
				fmt.Printf("Created rule '%s' (%s)\n", rule.Name, rule.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "owning tenant (required)")
	cmd.Flags().StringVar(&site, "site", "", "restrict to one site (optional)")
	cmd.Flags().StringArrayVarP(&conditions, "condition", "c", nil, "attribute condition key=value (repeatable)")
	cmd.Flags().StringVar(&adjType, "type", "percentage", "adjustment type (percentage or fixed)")
	cmd.Flags().StringVar(&adjValue, "value", "", "signed adjustment value (required)")
	cmd.Flags().StringVar(&minPrice, "min-price", "", "clamp floor applied after adjustment")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "clamp ceiling applied after adjustment")
	cmd.Flags().IntVar(&priority, "priority", 0, "evaluation priority, higher first")
	cmd.Flags().BoolVar(&stackable, "stack", true, "continue to lower-priority rules after this one")
	cmd.Flags().StringVar(&validFrom, "valid-from", "", "first valid date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&validUntil, "valid-until", "", "last valid date YYYY-MM-DD (inclusive)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the rule disabled")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("value")

	return cmd
}

func newRuleListCmd() *cobra.Command {
	var (
		tenant string
		site   string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pricing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				rules, err := s.ListRules(context.Background(), tenant, site, !all)
				if err != nil {
					return fmt.Errorf("failed to list rules: %w", err)
				}

				if len(rules) == 0 {
					fmt.Println("No rules yet. Add one with: priceforge rule add")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tADJUSTMENT\tPRIORITY\tSTACK\tCONDITIONS\tACTIVE\tAPPLIED")
				for _, r := range rules {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%s\t%v\t%d\n",
						shortID(r.ID),
						r.Name,
						formatAdjustment(r),
						r.Priority,
						r.Stackable,
						formatConditions(r.Conditions),
						r.IsActive,
						r.AppliedCount,
					)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "owning tenant (required)")
	cmd.Flags().StringVar(&site, "site", "", "include rules scoped to this site")
	cmd.Flags().BoolVar(&all, "all", false, "include disabled rules")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func newRuleSetActiveCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a pricing rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			return withStore(func(s *store.SQLiteStore) error {
				if err := s.SetRuleActive(context.Background(), id, active); err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("rule %s not found", args[0])
					}
					return err
				}
				fmt.Printf("Rule %s %sd\n", shortID(id), verb)
				return nil
			})
		},
	}
}

func newRuleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Soft-delete a pricing rule",
		Long: `Soft-delete a pricing rule. The rule stops matching immediately but
its row is kept for historical audit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			return withStore(func(s *store.SQLiteStore) error {
				if err := s.SoftDeleteRule(context.Background(), id); err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("rule %s not found", args[0])
					}
					return err
				}
				fmt.Printf("Rule %s deleted\n", shortID(id))
				return nil
			})
		},
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func formatAdjustment(r pricing.Rule) string {
	if r.AdjustmentType == pricing.AdjustmentPercentage {
		return r.AdjustmentValue.String() + "%"
	}
	return r.AdjustmentValue.StringFixed(2)
}

func formatConditions(conds map[string]string) string {
	if len(conds) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(conds))
	for k, v := range conds {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
