package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"WhiskeyIndex/internal/dataset"
	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/matching"
	"WhiskeyIndex/internal/ports"
)

// PipelineDeps wires all driven adapters into the reconciliation pipeline.
type PipelineDeps struct {
	DatasetPath string
	Columns     dataset.Columns
	Policy      matching.Policy
	Products    Products
	Source      ports.CandidateSource
	Cache       ports.CandidateCache
	Decisions   ports.DecisionLog
	Notifier    ports.Notifier
	Logger      *slog.Logger
}

// Pipeline implements the TTB-ID reconciliation workflow and the dataset
// maintenance commands around it.
type Pipeline struct {
	path      string
	columns   dataset.Columns
	policy    matching.Policy
	products  Products
	source    ports.CandidateSource
	cache     ports.CandidateCache
	decisions ports.DecisionLog
	notifier  ports.Notifier
	logger    *slog.Logger

	now      func() time.Time
	newRunID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		path:      deps.DatasetPath,
		columns:   deps.Columns,
		policy:    deps.Policy,
		products:  deps.Products,
		source:    deps.Source,
		cache:     deps.Cache,
		decisions: deps.Decisions,
		notifier:  deps.Notifier,
		logger:    logger,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// MatchOptions narrows and controls one match run.
type MatchOptions struct {
	// Products restricts the run to these dataset names; empty means all.
	Products []string
	Exclude  []string
	DryRun   bool
	// Refresh ignores cached search results.
	Refresh bool
	Notify  bool
}

// GroupResult describes one product/year search.
type GroupResult struct {
	Product     string
	Year        int
	Term        string
	Cached      bool
	Candidates  int
	Filtered    int
	Err         error
	Assignments []domain.Assignment
}

// MatchReport is everything a match run decided.
type MatchReport struct {
	RunID     string
	DryRun    bool
	Saved     bool
	Groups    []GroupResult
	Decisions []domain.Decision
	Outcome   dataset.Outcome
	// Malformed lists rows left out because their release year is unusable.
	Malformed []domain.Release
}

type targetGroup struct {
	product string
	year    int
	targets []domain.Release
}

// Match searches the registry for every product/year group of rows without
// an identifier, selects assignments and writes them back unless DryRun.
func (p *Pipeline) Match(ctx context.Context, opts MatchOptions) (MatchReport, error) {
	report := MatchReport{RunID: p.newRunID(), DryRun: opts.DryRun}
	started := p.now()

	ds, err := dataset.Load(p.path, p.columns)
	if err != nil {
		return report, fmt.Errorf("load dataset: %w", err)
	}

	groups, malformed := p.groupTargets(ds.Releases(), opts)
	report.Malformed = malformed
	for _, row := range malformed {
		p.logger.Warn("row skipped: unusable release year", "line", row.Line, "row", row.Key().String(), "year", row.ReleaseYear)
	}
	p.logger.Info("match started", "run_id", report.RunID, "groups", len(groups), "dry_run", opts.DryRun)

	var all []domain.Assignment
	for _, g := range groups {
		result, err := p.matchGroup(ctx, g, opts.Refresh)
		if err != nil {
			return report, err
		}
		report.Groups = append(report.Groups, result)
		all = append(all, result.Assignments...)
	}

	report.Outcome = ds.Apply(all)
	for _, skip := range report.Outcome.Skipped {
		p.logger.Warn("assignment skipped", "row", skip.Key.String(), "identifier", skip.Identifier,
			"existing", skip.Existing, "reason", skip.Reason)
	}
	report.Decisions = buildDecisions(all, report.Outcome)

	if !opts.DryRun && ds.Dirty() {
		if err := ds.Save(p.path); err != nil {
			return report, fmt.Errorf("save dataset: %w", err)
		}
		report.Saved = true
	}
	p.logger.Info("match finished", "run_id", report.RunID, "applied", len(report.Outcome.Applied),
		"skipped", len(report.Outcome.Skipped), "saved", report.Saved)

	if err := p.record(ctx, domain.Run{ID: report.RunID, Command: "match", DryRun: opts.DryRun, StartedAt: started}, report.Decisions); err != nil {
		return report, err
	}

	if opts.Notify {
		if err := p.publish(ctx, ReviewDigest(report)); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (p *Pipeline) matchGroup(ctx context.Context, g targetGroup, refresh bool) (GroupResult, error) {
	term := p.products.SearchTerm(g.product)
	result := GroupResult{Product: g.product, Year: g.year, Term: term}
	q := domain.YearQuery(g.product, term, g.year, p.policy.YearWindow)

	candidates, cached, err := p.candidates(ctx, q, refresh)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		p.logger.Warn("search failed", "product", g.product, "year", g.year, "error", err)
		result.Err = err
		for _, t := range matching.Chronological(g.targets) {
			result.Assignments = append(result.Assignments, domain.Assignment{
				Key:    t.Key(),
				Tier:   domain.TierNone,
				Reason: "search failed",
			})
		}
		return result, nil
	}

	filtered := matching.FilterGroup(candidates, g.targets, p.policy)
	result.Cached = cached
	result.Candidates = len(candidates)
	result.Filtered = len(filtered)
	result.Assignments = matching.Select(filtered, g.targets, p.policy)

	tiers := map[domain.Tier]int{}
	for _, a := range result.Assignments {
		tiers[a.Tier]++
	}
	p.logger.Info("group matched", "product", g.product, "year", g.year, "targets", len(g.targets),
		"candidates", len(candidates), "filtered", len(filtered), "cached", cached,
		"exact", tiers[domain.TierExactProof], "unique", tiers[domain.TierUniqueCandidate],
		"consistent", tiers[domain.TierConsistentGroup], "ordinal", tiers[domain.TierOrdinalFallback],
		"none", tiers[domain.TierNone])
	return result, nil
}

func (p *Pipeline) candidates(ctx context.Context, q domain.Query, refresh bool) ([]domain.Candidate, bool, error) {
	if p.cache != nil && !refresh {
		cands, ok, err := p.cache.LoadCandidates(ctx, q)
		switch {
		case err != nil:
			p.logger.Warn("candidate cache unavailable", "query", q.CacheKey(), "error", err)
		case ok:
			return cands, true, nil
		}
	}

	if p.source == nil {
		return nil, false, fmt.Errorf("no candidate source configured")
	}
	cands, err := p.source.Search(ctx, q)
	if err != nil {
		return nil, false, err
	}

	if p.cache != nil {
		if err := p.cache.SaveCandidates(ctx, q, cands); err != nil {
			p.logger.Warn("cannot cache candidates", "query", q.CacheKey(), "error", err)
		}
	}
	return cands, false, nil
}

// groupTargets collects rows without identifier by (Name, ReleaseYear),
// ordered by name then year.
func (p *Pipeline) groupTargets(rows []domain.Release, opts MatchOptions) ([]targetGroup, []domain.Release) {
	type groupKey struct {
		name string
		year int
	}
	index := map[groupKey]int{}
	var (
		groups    []targetGroup
		malformed []domain.Release
	)

	for _, row := range rows {
		if row.HasIdentifier() {
			continue
		}
		if len(opts.Products) > 0 && !containsFold(opts.Products, row.Name) {
			continue
		}
		if p.products.Excluded(row.Name, opts.Exclude) {
			continue
		}
		year, ok := row.Year()
		if !ok {
			malformed = append(malformed, row)
			continue
		}

		key := groupKey{name: row.Name, year: year}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, targetGroup{product: row.Name, year: year})
		}
		groups[i].targets = append(groups[i].targets, row)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].product != groups[j].product {
			return groups[i].product < groups[j].product
		}
		return groups[i].year < groups[j].year
	})
	return groups, malformed
}

func buildDecisions(assignments []domain.Assignment, outcome dataset.Outcome) []domain.Decision {
	skipped := map[domain.RowKey]string{}
	for _, s := range outcome.Skipped {
		if _, ok := skipped[s.Key]; !ok {
			skipped[s.Key] = s.Reason
		}
	}

	decisions := make([]domain.Decision, 0, len(assignments))
	for _, a := range assignments {
		d := domain.Decision{Assignment: a}
		switch reason, isSkipped := skipped[a.Key]; {
		case !a.Applicable():
			d.SkipReason = a.Reason
		case isSkipped:
			d.SkipReason = reason
		default:
			d.Applied = true
		}
		decisions = append(decisions, d)
	}
	return decisions
}

func (p *Pipeline) record(ctx context.Context, run domain.Run, decisions []domain.Decision) error {
	if p.decisions == nil {
		return nil
	}
	if err := p.decisions.RecordDecisions(ctx, run, decisions); err != nil {
		return fmt.Errorf("record decisions: %w", err)
	}
	return nil
}

func (p *Pipeline) publish(ctx context.Context, digest string) error {
	if p.notifier == nil || digest == "" {
		return nil
	}
	if err := p.notifier.PublishDigest(ctx, digest); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	return nil
}
