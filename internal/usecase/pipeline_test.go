package usecase

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"WhiskeyIndex/internal/dataset"
	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/logging"
	"WhiskeyIndex/internal/matching"
)

const fixture = "Name,Batch,Proof,ReleaseYear,Distillery,Type,TTB_ID\n" +
	"Booker's,2025-02,125.9,2025,Jim Beam,Bourbon,\n" +
	"Booker's,2025-01,124.6,2025,Jim Beam,Bourbon,\n" +
	"Booker's,2024-04,126.8,2024,Jim Beam,Bourbon,24002001000458\n" +
	"George T. Stagg (GTS),25A,128.7,2025,Buffalo Trace,Bourbon,\n" +
	"Weller,1,90,20x5,Buffalo Trace,Wheated Bourbon,\n"

type fakeSource struct {
	results map[string][]domain.Candidate
	errs    map[string]error
	terms   []string
}

func (f *fakeSource) Search(_ context.Context, q domain.Query) ([]domain.Candidate, error) {
	f.terms = append(f.terms, q.Term)
	if err := f.errs[q.Term]; err != nil {
		return nil, err
	}
	return f.results[q.Term], nil
}

type fakeCache struct {
	entries map[string][]domain.Candidate
}

func (f *fakeCache) LoadCandidates(_ context.Context, q domain.Query) ([]domain.Candidate, bool, error) {
	c, ok := f.entries[q.CacheKey()]
	return c, ok, nil
}

func (f *fakeCache) SaveCandidates(_ context.Context, q domain.Query, c []domain.Candidate) error {
	if f.entries == nil {
		f.entries = map[string][]domain.Candidate{}
	}
	f.entries[q.CacheKey()] = c
	return nil
}

type fakeLog struct {
	runs      []domain.Run
	decisions [][]domain.Decision
}

func (f *fakeLog) RecordDecisions(_ context.Context, run domain.Run, d []domain.Decision) error {
	f.runs = append(f.runs, run)
	f.decisions = append(f.decisions, d)
	return nil
}

type fakeNotifier struct{ digests []string }

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return nil
}

func bookersCandidates() []domain.Candidate {
	return []domain.Candidate{
		{
			Identifier:   "25010001000001",
			ApprovalDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
			Proof:        domain.ProofValue(124.6),
			TypeCode:     "101",
		},
		{
			Identifier:   "25010001000002",
			ApprovalDate: time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC),
			TypeCode:     "101",
		},
	}
}

type harness struct {
	path     string
	source   *fakeSource
	cache    *fakeCache
	log      *fakeLog
	notifier *fakeNotifier
	pipeline *Pipeline
}

func newHarness(t *testing.T, csv string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whiskeyindex.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	h := &harness{
		path:     path,
		source:   &fakeSource{results: map[string][]domain.Candidate{"Booker's": bookersCandidates()}},
		cache:    &fakeCache{},
		log:      &fakeLog{},
		notifier: &fakeNotifier{},
	}
	h.pipeline = NewPipeline(PipelineDeps{
		DatasetPath: path,
		Columns:     dataset.DefaultColumns(),
		Policy:      matching.DefaultPolicy(),
		Source:      h.source,
		Cache:       h.cache,
		Decisions:   h.log,
		Notifier:    h.notifier,
		Logger:      logging.Discard(),
	})
	ids := 0
	h.pipeline.newRunID = func() string {
		ids++
		return "run-" + string(rune('0'+ids))
	}
	return h
}

func (h *harness) read(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(h.path)
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	return string(raw)
}

func TestMatchAssignsAndWritesBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	rep, err := h.pipeline.Match(context.Background(), MatchOptions{Notify: true})
	if err != nil {
		t.Fatalf("match: %v", err)
	}

	if len(rep.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", rep.Groups)
	}
	if rep.Groups[1].Term != "George T. Stagg" {
		t.Fatalf("search term should drop the abbreviation, got %q", rep.Groups[1].Term)
	}
	if len(rep.Malformed) != 1 || rep.Malformed[0].Name != "Weller" {
		t.Fatalf("expected the Weller row to be reported malformed, got %+v", rep.Malformed)
	}
	if len(rep.Outcome.Applied) != 2 || !rep.Saved {
		t.Fatalf("expected 2 applied and a save, got %+v", rep.Outcome)
	}

	tiers := map[string]domain.Tier{}
	for _, d := range rep.Decisions {
		tiers[d.Key.Batch] = d.Tier
	}
	if tiers["2025-01"] != domain.TierExactProof || tiers["2025-02"] != domain.TierUniqueCandidate || tiers["25A"] != domain.TierNone {
		t.Fatalf("unexpected tiers %v", tiers)
	}

	want := strings.Replace(fixture, "125.9,2025,Jim Beam,Bourbon,\n", "125.9,2025,Jim Beam,Bourbon,25010001000002\n", 1)
	want = strings.Replace(want, "124.6,2025,Jim Beam,Bourbon,\n", "124.6,2025,Jim Beam,Bourbon,25010001000001\n", 1)
	if got := h.read(t); got != want {
		t.Fatalf("unexpected dataset:\n%s", got)
	}

	if len(h.log.runs) != 1 || h.log.runs[0].Command != "match" || len(h.log.decisions[0]) != 3 {
		t.Fatalf("decisions not recorded: %+v", h.log.runs)
	}
	if len(h.notifier.digests) != 0 {
		t.Fatalf("nothing needed review, got %q", h.notifier.digests)
	}
}

func TestMatchIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	if _, err := h.pipeline.Match(context.Background(), MatchOptions{}); err != nil {
		t.Fatalf("first match: %v", err)
	}
	first := h.read(t)
	searches := len(h.source.terms)

	rep, err := h.pipeline.Match(context.Background(), MatchOptions{})
	if err != nil {
		t.Fatalf("second match: %v", err)
	}
	if len(rep.Outcome.Applied) != 0 || rep.Saved {
		t.Fatalf("second run should change nothing: %+v", rep.Outcome)
	}
	if h.read(t) != first {
		t.Fatalf("second run rewrote the dataset")
	}
	if len(h.source.terms) != searches {
		t.Fatalf("cached search repeated: %v", h.source.terms)
	}
	if !rep.Groups[0].Cached {
		t.Fatalf("expected cached group, got %+v", rep.Groups[0])
	}
}

func TestMatchDryRunLeavesFileAlone(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	rep, err := h.pipeline.Match(context.Background(), MatchOptions{DryRun: true, Products: []string{"booker's"}})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(rep.Groups) != 1 || len(rep.Outcome.Applied) != 2 || rep.Saved {
		t.Fatalf("unexpected dry run report %+v", rep)
	}
	if h.read(t) != fixture {
		t.Fatalf("dry run wrote the dataset")
	}
	if !h.log.runs[0].DryRun {
		t.Fatalf("run should be recorded as dry run")
	}
}

func TestMatchExcludeAndRefresh(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	h.pipeline.products = Products{Exclude: []string{"George T. Stagg (GTS)"}}

	if _, err := h.pipeline.Match(context.Background(), MatchOptions{DryRun: true}); err != nil {
		t.Fatalf("match: %v", err)
	}
	if _, err := h.pipeline.Match(context.Background(), MatchOptions{DryRun: true, Refresh: true, Exclude: []string{"Booker's"}}); err != nil {
		t.Fatalf("match: %v", err)
	}
	if strings.Join(h.source.terms, ",") != "Booker's" {
		t.Fatalf("unexpected searches %v", h.source.terms)
	}
}

func TestMatchSearchFailureIsReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	h.source.errs = map[string]error{"George T. Stagg": errors.New("registry down")}

	rep, err := h.pipeline.Match(context.Background(), MatchOptions{DryRun: true})
	if err != nil {
		t.Fatalf("a failed search should not abort the run: %v", err)
	}
	if rep.Groups[1].Err == nil || rep.Groups[1].Assignments[0].Reason != "search failed" {
		t.Fatalf("expected failed group, got %+v", rep.Groups[1])
	}

	var buf bytes.Buffer
	if err := WriteMatchReport(&buf, rep); err != nil {
		t.Fatalf("report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"registry down", "[EXACT_PROOF]", "2 applied", "dry run: dataset not written", "ignored line 6"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestMatchNotifiesReviewItems(t *testing.T) {
	t.Parallel()

	csv := "Name,Batch,Proof,ReleaseYear,Type,TTB_ID\n" +
		"Stagg,25B,130.1,2025,Bourbon,\n" +
		"Stagg,25A,128.7,2025,Bourbon,\n"
	h := newHarness(t, csv)
	h.source.results["Stagg"] = []domain.Candidate{
		{Identifier: "25010001000010", ApprovalDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{Identifier: "25010001000011", ApprovalDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)},
	}

	rep, err := h.pipeline.Match(context.Background(), MatchOptions{Notify: true})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	for _, d := range rep.Decisions {
		if d.Tier != domain.TierOrdinalFallback {
			t.Fatalf("expected ordinal pairing, got %+v", d)
		}
	}
	if len(h.notifier.digests) != 1 || !strings.Contains(h.notifier.digests[0], "Stagg / 25A (2025) -> 25010001000010") {
		t.Fatalf("unexpected digest %q", h.notifier.digests)
	}
}

func TestMatchMissingDataset(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixture)
	h.pipeline.path = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := h.pipeline.Match(context.Background(), MatchOptions{}); err == nil {
		t.Fatalf("expected load error")
	}
	if len(h.source.terms) != 0 {
		t.Fatalf("nothing should be searched when the dataset cannot be read")
	}
}
