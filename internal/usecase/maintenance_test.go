package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"WhiskeyIndex/internal/domain"
)

const suspectFixture = "Name,Batch,Proof,ReleaseYear,Type,TTB_ID\n" +
	"Booker's,2024-04,130.0,2024,Bourbon,24002001000458\n" +
	"Booker's,2024-03,125.0,2024,Bourbon,24002001000458\n" +
	"Booker's,2024-02,124.6,2024,Bourbon,24002001000400\n" +
	"Booker's,2024-01,125.2,2024,Bourbon,24002001000400\n"

func TestAuditReportsSuspects(t *testing.T) {
	t.Parallel()

	h := newHarness(t, suspectFixture)
	groups, err := h.pipeline.Audit(context.Background(), true)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(groups) != 1 || groups[0].Identifier != "24002001000458" || groups[0].Spread != 5 {
		t.Fatalf("unexpected suspects %+v", groups)
	}
	if h.read(t) != suspectFixture {
		t.Fatalf("audit must not modify the dataset")
	}
	if len(h.notifier.digests) != 1 || !strings.Contains(h.notifier.digests[0], "proof spread 5.0") {
		t.Fatalf("unexpected digest %q", h.notifier.digests)
	}

	var buf bytes.Buffer
	if err := WriteAuditReport(&buf, groups); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(buf.String(), "line 2  Booker's / 2024-04 (2024)  proof 130.0") {
		t.Fatalf("unexpected audit report:\n%s", buf.String())
	}
}

func TestClearSuspect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, suspectFixture)

	rep, err := h.pipeline.Clear(context.Background(), ClearOptions{Suspect: true, DryRun: true})
	if err != nil {
		t.Fatalf("dry clear: %v", err)
	}
	if len(rep.Cleared) != 2 || rep.Saved || h.read(t) != suspectFixture {
		t.Fatalf("dry run should report but not write: %+v", rep)
	}

	rep, err = h.pipeline.Clear(context.Background(), ClearOptions{Suspect: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !rep.Saved || rep.Cleared[0].Identifier != "24002001000458" {
		t.Fatalf("unexpected clear report %+v", rep)
	}
	got := h.read(t)
	if strings.Contains(got, "24002001000458") || !strings.Contains(got, "24002001000400") {
		t.Fatalf("wrong identifiers cleared:\n%s", got)
	}
	if h.log.runs[1].Command != "clear" || len(h.log.decisions[1]) != 2 {
		t.Fatalf("clear not recorded: %+v", h.log.runs)
	}

	rep, err = h.pipeline.Clear(context.Background(), ClearOptions{Suspect: true})
	if err != nil || len(rep.Cleared) != 0 {
		t.Fatalf("nothing left to clear, got %+v %v", rep, err)
	}
}

func TestClearRequiresSelection(t *testing.T) {
	t.Parallel()

	h := newHarness(t, suspectFixture)
	if _, err := h.pipeline.Clear(context.Background(), ClearOptions{}); !errors.Is(err, ErrNothingToClear) {
		t.Fatalf("expected ErrNothingToClear, got %v", err)
	}

	rep, err := h.pipeline.Clear(context.Background(), ClearOptions{Identifiers: []string{"24002001000400"}})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(rep.Cleared) != 2 {
		t.Fatalf("expected both rows cleared, got %+v", rep.Cleared)
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	input := strings.NewReader("George T. Stagg (GTS) | 25A | 2025 | 25030001000042\n" +
		"Booker's, 2024-04, 2024: 99999999999999\n")

	rep, err := h.pipeline.Import(context.Background(), input, false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rep.Outcome.Applied) != 1 || len(rep.Outcome.Skipped) != 1 || !rep.Saved {
		t.Fatalf("unexpected import outcome %+v", rep.Outcome)
	}
	if !rep.Decisions[0].Manual() || !rep.Decisions[0].Applied || rep.Decisions[0].Label() != "MANUAL" {
		t.Fatalf("imported decision should be marked manual, got %+v", rep.Decisions[0])
	}
	if rep.Outcome.Skipped[0].Existing != "24002001000458" {
		t.Fatalf("existing identifier should be reported, got %+v", rep.Outcome.Skipped[0])
	}
	got := h.read(t)
	if !strings.Contains(got, "Buffalo Trace,Bourbon,25030001000042\n") || strings.Contains(got, "99999999999999") {
		t.Fatalf("unexpected dataset:\n%s", got)
	}

	var buf bytes.Buffer
	if err := WriteImportReport(&buf, rep); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(buf.String(), "already assigned") ||
		!strings.Contains(buf.String(), "applied George T. Stagg (GTS) / 25A (2025) -> 25030001000042 [MANUAL]") {
		t.Fatalf("unexpected import report:\n%s", buf.String())
	}

	if _, err := h.pipeline.Import(context.Background(), strings.NewReader("garbage\n"), false); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSummaryAndCheck(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	cov, err := h.pipeline.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if cov.Total != 5 || cov.WithIdentifier != 1 || len(cov.MissingProducts) != 2 {
		t.Fatalf("unexpected coverage %+v", cov)
	}

	violations, err := h.pipeline.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("fixture is ordered, got %+v", violations)
	}

	var buf bytes.Buffer
	if err := WriteCoverage(&buf, cov); err != nil {
		t.Fatalf("coverage report: %v", err)
	}
	if !strings.Contains(buf.String(), "with TTB ID: 1 (20.0%)") {
		t.Fatalf("unexpected coverage report:\n%s", buf.String())
	}
}

func TestReviewDigest(t *testing.T) {
	t.Parallel()

	rep := MatchReport{RunID: "r1", Decisions: []domain.Decision{
		{Assignment: domain.Assignment{Key: domain.RowKey{Name: "A", Batch: "1", ReleaseYear: "2025"}, Identifier: "X", Tier: domain.TierExactProof}, Applied: true},
		{Assignment: domain.Assignment{Key: domain.RowKey{Name: "A", Batch: "2", ReleaseYear: "2025"}, Identifier: "Y", Tier: domain.TierConsistentGroup}, Applied: true},
		{Assignment: domain.Assignment{Key: domain.RowKey{Name: "A", Batch: "3", ReleaseYear: "2025"}, Identifier: "Z", Tier: domain.TierOrdinalFallback}, SkipReason: "already assigned"},
	}}
	digest := ReviewDigest(rep)
	if !strings.Contains(digest, "A / 2 (2025) -> Y [CONSISTENT_GROUP]") || strings.Contains(digest, "-> X") || strings.Contains(digest, "-> Z") {
		t.Fatalf("unexpected digest %q", digest)
	}
	if ReviewDigest(MatchReport{}) != "" {
		t.Fatalf("empty report should give empty digest")
	}
}

func TestProductsSearchTerm(t *testing.T) {
	t.Parallel()

	p := Products{Aliases: map[string]string{"ECBP": "Elijah Craig Barrel Proof"}}
	cases := map[string]string{
		"ECBP":                  "Elijah Craig Barrel Proof",
		"George T. Stagg (GTS)": "George T. Stagg",
		"Booker's":              "Booker's",
		"(Unnamed)":             "(Unnamed)",
	}
	for in, want := range cases {
		if got := p.SearchTerm(in); got != want {
			t.Fatalf("SearchTerm(%q) = %q, want %q", in, got, want)
		}
	}
	if !p.Excluded("weller", []string{"Weller"}) || p.Excluded("Booker's", nil) {
		t.Fatalf("exclusion is case-insensitive and opt-in")
	}
}
