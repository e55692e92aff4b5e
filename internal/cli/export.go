package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/experiment"
	"github.com/priceforge/priceforge/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export raw exposure data",
	Long: `Export the raw exposure ledger in CSV or JSON format.

Examples:
  priceforge export summer-discount --format csv > exposures.csv
  priceforge export summer-discount --format json > exposures.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

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

		if exportFormat == "csv" {
			return exportCSV(rows)
		}
		return exportJSON(rows)
	})
}

func exportCSV(rows []experiment.Exposure) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"timestamp", "visitor_id", "variant", "price_shown", "converted", "revenue", "converted_at"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, x := range rows {
		convertedAt := ""
		if x.ConvertedAt != nil {
			convertedAt = strconv.FormatInt(x.ConvertedAt.Unix(), 10)
		}
		row := []string{
			strconv.FormatInt(x.CreatedAt.Unix(), 10),
			x.VisitorID,
			x.VariantName,
			x.PriceShown.String(),
			strconv.FormatBool(x.Converted),
			x.Revenue.String(),
			convertedAt,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

type jsonExport struct {
	Exposures []jsonExposure `json:"exposures"`
}

type jsonExposure struct {
	Timestamp   int64  `json:"timestamp"`
	VisitorID   string `json:"visitor_id"`
	Variant     string `json:"variant"`
	PriceShown  string `json:"price_shown"`
	Converted   bool   `json:"converted"`
	Revenue     string `json:"revenue"`
	ConvertedAt *int64 `json:"converted_at,omitempty"`
}

func exportJSON(rows []experiment.Exposure) error {
	export := jsonExport{
		Exposures: make([]jsonExposure, len(rows)),
	}

	for i, x := range rows {
		j := jsonExposure{
			Timestamp:  x.CreatedAt.Unix(),
			VisitorID:  x.VisitorID,
			Variant:    x.VariantName,
			PriceShown: x.PriceShown.String(),
			Converted:  x.Converted,
			Revenue:    x.Revenue.String(),
		}
		if x.ConvertedAt != nil {
			ts := x.ConvertedAt.Unix()
			j.ConvertedAt = &ts
		}
		export.Exposures[i] = j
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
