package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/priceforge/priceforge/internal/config"
	"github.com/priceforge/priceforge/internal/logx"
)

var (
	dbPath  string
	verbose bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "priceforge",
	Short: "Priceforge - dynamic pricing rules and pricing experiments",
	Long: `Priceforge computes effective unit prices from prioritized,
stackable adjustment rules and runs deterministic A/B pricing experiments
with two-proportion significance testing.

Single Go binary, embedded SQLite.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.Init(verbose || cfg.Verbose)
	},
}

func Execute() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("PRICEFORGE_DB_PATH", ""), "database path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
