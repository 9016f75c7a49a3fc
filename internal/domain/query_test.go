package domain

import (
	"testing"
	"time"
)

func TestYearQuery(t *testing.T) {
	t.Parallel()

	q := YearQuery("Booker's", "Booker's", 2025, 1)
	if q.From != time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected from %v", q.From)
	}
	if q.To != time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected to %v", q.To)
	}
	if got := q.CacheKey(); got != "booker's|2024-01-01|2026-12-31" {
		t.Fatalf("unexpected cache key %q", got)
	}
}

func TestCandidateApprovalYear(t *testing.T) {
	t.Parallel()

	c := Candidate{Identifier: "25176001000385"}
	if y, ok := c.ApprovalYear(); !ok || y != 2025 {
		t.Fatalf("expected identifier hint 2025, got %d %v", y, ok)
	}

	c.ApprovalDate = time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)
	if y, _ := c.ApprovalYear(); y != 2024 {
		t.Fatalf("approval date should win, got %d", y)
	}

	if _, ok := (Candidate{Identifier: "abc"}).ApprovalYear(); ok {
		t.Fatalf("short identifier has no year hint")
	}
}

func TestParseProof(t *testing.T) {
	t.Parallel()

	p, ok := ParseProof("124.6-125.2")
	if !ok || p.Low != 124.6 || p.High != 125.2 {
		t.Fatalf("unexpected range %+v %v", p, ok)
	}
	if !p.Within(125.5, 0.5) || p.Within(126, 0.5) {
		t.Fatalf("range tolerance broken: %+v", p)
	}

	p, ok = ParseProof(" 90 ")
	if !ok || p.Low != 90 || p.High != 90 {
		t.Fatalf("unexpected single proof %+v", p)
	}

	if _, ok := ParseProof("cask strength"); ok {
		t.Fatalf("expected failure for text proof")
	}
}
