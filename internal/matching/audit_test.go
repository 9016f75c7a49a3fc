package matching

import (
	"testing"

	"WhiskeyIndex/internal/domain"
)

func TestAuditFlagsWideSpread(t *testing.T) {
	t.Parallel()

	rows := []domain.Release{
		{Name: "Stagg", Batch: "23A", Proof: "90.0", Identifier: "X"},
		{Name: "Stagg", Batch: "23B", Proof: "90.4", Identifier: "X"},
		{Name: "Stagg", Batch: "23C", Proof: "95.0", Identifier: "X"},
		{Name: "Booker's", Batch: "2024-01", Proof: "125.9", Identifier: "Y"},
		{Name: "Booker's", Batch: "2024-02", Proof: "126.8", Identifier: "Y"},
		{Name: "Booker's", Batch: "2024-03", Proof: "130.1", Identifier: ""},
	}

	got := Audit(rows, DefaultPolicy())
	if len(got) != 1 {
		t.Fatalf("expected 1 suspect group, got %d", len(got))
	}
	if got[0].Identifier != "X" || len(got[0].Rows) != 3 {
		t.Fatalf("unexpected group %+v", got[0])
	}
	if got[0].Spread != 5.0 {
		t.Fatalf("expected spread 5.0, got %v", got[0].Spread)
	}
}

func TestAuditRangesUseLowerBound(t *testing.T) {
	t.Parallel()

	rows := []domain.Release{
		{Proof: "114.2-124.4", Identifier: "R"},
		{Proof: "115.0", Identifier: "R"},
		{Proof: "n/a", Identifier: "R"},
	}

	if got := Audit(rows, DefaultPolicy()); len(got) != 0 {
		t.Fatalf("expected no suspects, got %+v", got)
	}

	spread, ok := ProofSpread(rows)
	if !ok || spread < 0.79 || spread > 0.81 {
		t.Fatalf("unexpected spread %v (ok=%v)", spread, ok)
	}
}

func TestAuditIgnoresSingletons(t *testing.T) {
	t.Parallel()

	rows := []domain.Release{{Proof: "90", Identifier: "A"}, {Proof: "140", Identifier: "B"}}
	if got := Audit(rows, DefaultPolicy()); len(got) != 0 {
		t.Fatalf("expected no suspects, got %+v", got)
	}
}
