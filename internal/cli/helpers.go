package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/priceforge/priceforge/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// parseAttrs turns repeated "key=value" flags into a unit attribute map.
func parseAttrs(pairs []string) (map[string]string, error) {
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q (want key=value)", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}

// parseDate accepts a YYYY-MM-DD date or an empty string.
func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", v)
	}
	return &t, nil
}

// parseMoney accepts a decimal amount or an empty string.
func parseMoney(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", v, err)
	}
	return &d, nil
}
