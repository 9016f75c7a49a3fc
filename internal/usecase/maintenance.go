package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"WhiskeyIndex/internal/dataset"
	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/matching"
)

// ErrNothingToClear is returned by Clear when neither identifiers nor the
// suspect selection were given.
var ErrNothingToClear = errors.New("no identifiers to clear")

// Audit reports identifiers whose rows spread too far in proof. It never
// changes the dataset.
func (p *Pipeline) Audit(ctx context.Context, notify bool) ([]domain.SuspectGroup, error) {
	ds, err := dataset.Load(p.path, p.columns)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	groups := matching.Audit(ds.Releases(), p.policy)
	p.logger.Info("audit finished", "suspect_groups", len(groups))

	if notify {
		if err := p.publish(ctx, AuditDigest(groups)); err != nil {
			return groups, err
		}
	}
	return groups, nil
}

// ClearOptions selects the identifiers to remove.
type ClearOptions struct {
	Identifiers []string
	// Suspect adds every identifier flagged by Audit.
	Suspect bool
	DryRun  bool
}

// ClearReport lists the rows whose identifier was removed.
type ClearReport struct {
	RunID       string
	Identifiers []string
	Cleared     []domain.Decision
	Saved       bool
}

// Clear empties the identifier of every row holding one of the selected
// identifiers. This is the only operation that removes identifiers.
func (p *Pipeline) Clear(ctx context.Context, opts ClearOptions) (ClearReport, error) {
	report := ClearReport{RunID: p.newRunID()}
	started := p.now()

	ds, err := dataset.Load(p.path, p.columns)
	if err != nil {
		return report, fmt.Errorf("load dataset: %w", err)
	}
	rows := ds.Releases()

	ids := append([]string(nil), opts.Identifiers...)
	if opts.Suspect {
		for _, g := range matching.Audit(rows, p.policy) {
			ids = append(ids, g.Identifier)
		}
	}
	if len(ids) == 0 {
		if opts.Suspect {
			return report, nil
		}
		return report, ErrNothingToClear
	}
	report.Identifiers = ids

	previous := make(map[domain.RowKey]string, len(rows))
	for _, r := range rows {
		previous[r.Key()] = r.Identifier
	}
	for _, key := range ds.Clear(ids) {
		report.Cleared = append(report.Cleared, domain.Decision{
			Assignment: domain.Assignment{Key: key, Identifier: previous[key], Tier: domain.TierNone, Reason: "cleared"},
			Applied:    true,
		})
		p.logger.Info("identifier cleared", "row", key.String(), "identifier", previous[key], "dry_run", opts.DryRun)
	}

	if !opts.DryRun && ds.Dirty() {
		if err := ds.Save(p.path); err != nil {
			return report, fmt.Errorf("save dataset: %w", err)
		}
		report.Saved = true
	}

	err = p.record(ctx, domain.Run{ID: report.RunID, Command: "clear", DryRun: opts.DryRun, StartedAt: started}, report.Cleared)
	return report, err
}

// ImportReport is the result of applying manually researched identifiers.
type ImportReport struct {
	RunID     string
	DryRun    bool
	Saved     bool
	Decisions []domain.Decision
	Outcome   dataset.Outcome
}

// Import applies "Product | Batch | Year | ID" lines through the same
// never-overwrite write-back as Match.
func (p *Pipeline) Import(ctx context.Context, r io.Reader, dryRun bool) (ImportReport, error) {
	report := ImportReport{RunID: p.newRunID(), DryRun: dryRun}
	started := p.now()

	assignments, err := dataset.ParseManual(r)
	if err != nil {
		return report, fmt.Errorf("parse manual identifiers: %w", err)
	}

	ds, err := dataset.Load(p.path, p.columns)
	if err != nil {
		return report, fmt.Errorf("load dataset: %w", err)
	}

	report.Outcome = ds.Apply(assignments)
	for _, skip := range report.Outcome.Skipped {
		p.logger.Warn("import skipped", "row", skip.Key.String(), "identifier", skip.Identifier,
			"existing", skip.Existing, "reason", skip.Reason)
	}
	report.Decisions = buildDecisions(assignments, report.Outcome)

	if !dryRun && ds.Dirty() {
		if err := ds.Save(p.path); err != nil {
			return report, fmt.Errorf("save dataset: %w", err)
		}
		report.Saved = true
	}

	err = p.record(ctx, domain.Run{ID: report.RunID, Command: "import", DryRun: dryRun, StartedAt: started}, report.Decisions)
	return report, err
}

// Summary computes identifier coverage of the dataset.
func (p *Pipeline) Summary() (dataset.Coverage, error) {
	ds, err := dataset.Load(p.path, p.columns)
	if err != nil {
		return dataset.Coverage{}, fmt.Errorf("load dataset: %w", err)
	}
	return dataset.Summarize(ds.Releases()), nil
}

// Check validates dataset ordering and row uniqueness.
func (p *Pipeline) Check() ([]dataset.Violation, error) {
	ds, err := dataset.Load(p.path, p.columns)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return dataset.Check(ds.Releases()), nil
}
