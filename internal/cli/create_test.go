package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/priceforge/priceforge/internal/config"
	"github.com/priceforge/priceforge/internal/store"
)

func captureOutput(f func() error) (string, error) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

// useTestDB points the package-level db path at a throwaway database.
func useTestDB(t *testing.T) {
	t.Helper()
	old := dbPath
	dbPath = filepath.Join(t.TempDir(), "test.db")
	t.Cleanup(func() { dbPath = old })
}

func loadTestConfig(t *testing.T) {
	t.Helper()
	loaded, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	old := cfg
	cfg = loaded
	t.Cleanup(func() { cfg = old })
}

func runCreate(t *testing.T, args ...string) {
	t.Helper()
	cmd := newCreateCmd()
	cmd.SetArgs(args)
	if _, err := captureOutput(cmd.Execute); err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func TestCreate_TrafficDefaultFromEnv(t *testing.T) {
	t.Setenv("PRICEFORGE_TRAFFIC_PERCENTAGE", "25")
	loadTestConfig(t)
	useTestDB(t)

	runCreate(t, "env-traffic", "--tenant", "t1", "--variants", "control:50,discount_10:50")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	e, err := s.GetExperiment(context.Background(), "env-traffic")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}
	if e.TrafficPercentage != 25 {
		t.Errorf("got traffic %g, want 25 from environment", e.TrafficPercentage)
	}
}

func TestCreate_TrafficFlagOverridesEnv(t *testing.T) {
	t.Setenv("PRICEFORGE_TRAFFIC_PERCENTAGE", "25")
	loadTestConfig(t)
	useTestDB(t)

	// Zero is a legal traffic value and must survive the env fallback.
	runCreate(t, "flag-traffic", "--tenant", "t1",
		"--variants", "control:50,discount_10:50", "--traffic", "0")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	e, err := s.GetExperiment(context.Background(), "flag-traffic")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}
	if e.TrafficPercentage != 0 {
		t.Errorf("got traffic %g, want 0 from the flag", e.TrafficPercentage)
	}
}

func TestCreate_TrafficDefaultWithoutEnv(t *testing.T) {
	loadTestConfig(t)
	useTestDB(t)

	runCreate(t, "default-traffic", "--tenant", "t1", "--variants", "control:50,discount_10:50")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	e, err := s.GetExperiment(context.Background(), "default-traffic")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}
	if e.TrafficPercentage != 100 {
		t.Errorf("got traffic %g, want the 100 default", e.TrafficPercentage)
	}
}
