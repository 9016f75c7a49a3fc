package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"WhiskeyIndex/internal/config"
	"WhiskeyIndex/internal/logging"
	"WhiskeyIndex/internal/usecase"
)

func testConfig(t *testing.T, dir string) config.Config {
	t.Helper()
	csv := "Name,Batch,Proof,ReleaseYear,Distillery,Type,TTB_ID\n" +
		"Booker's,2025-01,124.6,2025,Jim Beam,Bourbon,\n"
	results := `{"Booker's": [{"TTB ID": "25010001000001", "Completed Date": "01/15/2025", "Proof": "124.6"}]}`

	datasetPath := filepath.Join(dir, "whiskeyindex.csv")
	if err := os.WriteFile(datasetPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "results.json"), []byte(results), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}

	return config.Config{
		Dataset: config.DatasetConfig{Path: datasetPath, IdentifierColumn: "TTB_ID"},
		Matching: config.MatchingConfig{
			YearWindow:          1,
			ProofWindow:         1,
			ExactProofTolerance: 0.5,
			MaxProofSpread:      2,
		},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "ledger", "ttb.sqlite")},
	}
}

func TestApplicationMatchWithSavedResults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(t, dir)
	ctx := context.Background()

	application, err := New(ctx, cfg, logging.Discard(), Options{Source: "file", ResultsFile: filepath.Join(dir, "results.json")})
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	defer application.Close()

	rep, err := application.Pipeline().Match(ctx, usecase.MatchOptions{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(rep.Outcome.Applied) != 1 || !rep.Saved {
		t.Fatalf("unexpected outcome %+v", rep.Outcome)
	}

	raw, err := os.ReadFile(cfg.Dataset.Path)
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	if !strings.HasSuffix(string(raw), "Jim Beam,Bourbon,25010001000001\n") {
		t.Fatalf("identifier not written:\n%s", raw)
	}

	decisions, err := application.ledger.Decisions(ctx, rep.RunID)
	if err != nil {
		t.Fatalf("ledger decisions: %v", err)
	}
	if len(decisions) != 1 || !decisions[0].Applied || decisions[0].Identifier != "25010001000001" {
		t.Fatalf("unexpected ledger decisions %+v", decisions)
	}
}

func TestApplicationWithoutLedger(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Database.Driver = DriverNone

	application, err := New(context.Background(), cfg, logging.Discard(), Options{Source: "file", ResultsFile: filepath.Join(dir, "results.json")})
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if application.ledger != nil {
		t.Fatalf("ledger should be disabled")
	}
	if err := application.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestApplicationUnknownSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, t.TempDir())
	cfg.Database.Driver = DriverNone
	if _, err := New(context.Background(), cfg, logging.Discard(), Options{Source: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected unknown source error")
	}
}
