// Package config provides engine defaults from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the defaults applied when a command or an experiment
// definition leaves a knob unset.
type Config struct {
	DBPath            string  `envconfig:"DB_PATH" default:"./priceforge.db"`
	MinSampleSize     int     `envconfig:"MIN_SAMPLE_SIZE" default:"100"`
	ConfidenceLevel   float64 `envconfig:"CONFIDENCE_LEVEL" default:"95"`
	TrafficPercentage float64 `envconfig:"TRAFFIC_PERCENTAGE" default:"100"`
	DurationDays      int     `envconfig:"DURATION_DAYS" default:"14"`
	Verbose           bool    `envconfig:"VERBOSE" default:"false"`
}

// Load reads configuration from a .env file (if present) and the
// PRICEFORGE_* environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("priceforge", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
