package usecase

import (
	"fmt"
	"io"
	"strings"

	"WhiskeyIndex/internal/dataset"
	"WhiskeyIndex/internal/domain"
)

const auditSampleRows = 5

// WriteMatchReport prints tier and reason per assignment, grouped by search.
func WriteMatchReport(w io.Writer, rep MatchReport) error {
	var b strings.Builder

	for _, g := range rep.Groups {
		fmt.Fprintf(&b, "%s %d (search %q)", g.Product, g.Year, g.Term)
		if g.Err != nil {
			fmt.Fprintf(&b, ": search failed: %v\n", g.Err)
			continue
		}
		fmt.Fprintf(&b, ": %d candidates, %d after filtering", g.Candidates, g.Filtered)
		if g.Cached {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
		for _, a := range g.Assignments {
			b.WriteString("  " + assignmentLine(a) + "\n")
		}
	}

	for _, s := range rep.Outcome.Skipped {
		fmt.Fprintf(&b, "skipped %s -> %s: %s", s.Key, s.Identifier, s.Reason)
		if s.Existing != "" {
			fmt.Fprintf(&b, " (has %s)", s.Existing)
		}
		b.WriteString("\n")
	}
	for _, r := range rep.Malformed {
		fmt.Fprintf(&b, "ignored line %d %s: release year %q is not a year\n", r.Line, r.Key(), r.ReleaseYear)
	}

	review, unresolved := 0, 0
	for _, d := range rep.Decisions {
		if d.Tier == domain.TierNone {
			unresolved++
		}
		if d.Applied && d.ReviewRecommended() {
			review++
		}
	}
	fmt.Fprintf(&b, "run %s: %d applied, %d skipped, %d unresolved, %d to review\n",
		rep.RunID, len(rep.Outcome.Applied), len(rep.Outcome.Skipped), unresolved, review)
	b.WriteString(saveLine(rep.DryRun, rep.Saved))

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAuditReport prints identifier, row count, spread and sample rows.
func WriteAuditReport(w io.Writer, groups []domain.SuspectGroup) error {
	var b strings.Builder
	if len(groups) == 0 {
		b.WriteString("no suspect identifiers\n")
	}
	for _, g := range groups {
		b.WriteString(suspectLine(g) + "\n")
		for i, r := range g.Rows {
			if i == auditSampleRows {
				fmt.Fprintf(&b, "  ... %d more\n", len(g.Rows)-auditSampleRows)
				break
			}
			fmt.Fprintf(&b, "  line %d  %s  proof %s\n", r.Line, r.Key(), r.Proof)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteClearReport prints the rows whose identifier was removed.
func WriteClearReport(w io.Writer, rep ClearReport, dryRun bool) error {
	var b strings.Builder
	for _, d := range rep.Cleared {
		fmt.Fprintf(&b, "cleared %s (was %s)\n", d.Key, d.Identifier)
	}
	fmt.Fprintf(&b, "run %s: %d rows cleared for %d identifiers\n", rep.RunID, len(rep.Cleared), len(rep.Identifiers))
	b.WriteString(saveLine(dryRun, rep.Saved))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteImportReport prints applied and skipped manual identifiers.
func WriteImportReport(w io.Writer, rep ImportReport) error {
	var b strings.Builder
	for _, d := range rep.Decisions {
		if d.Applied {
			fmt.Fprintf(&b, "applied %s -> %s [%s]\n", d.Key, d.Identifier, d.Label())
		}
	}
	for _, s := range rep.Outcome.Skipped {
		fmt.Fprintf(&b, "skipped %s -> %s: %s\n", s.Key, s.Identifier, s.Reason)
	}
	fmt.Fprintf(&b, "run %s: %d applied, %d skipped\n", rep.RunID, len(rep.Outcome.Applied), len(rep.Outcome.Skipped))
	b.WriteString(saveLine(rep.DryRun, rep.Saved))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCoverage prints the identifier coverage summary.
func WriteCoverage(w io.Writer, cov dataset.Coverage) error {
	var b strings.Builder
	fmt.Fprintf(&b, "rows: %d\n", cov.Total)
	fmt.Fprintf(&b, "with TTB ID: %d (%.1f%%)\n", cov.WithIdentifier, cov.Percent())
	fmt.Fprintf(&b, "without TTB ID: %d\n", cov.Total-cov.WithIdentifier)
	fmt.Fprintf(&b, "products: %d, without any TTB ID: %d\n", cov.Products, len(cov.MissingProducts))
	for _, name := range cov.MissingProducts {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteViolations prints ordering and uniqueness problems.
func WriteViolations(w io.Writer, violations []dataset.Violation) error {
	var b strings.Builder
	if len(violations) == 0 {
		b.WriteString("dataset order and uniqueness ok\n")
	}
	for _, v := range violations {
		fmt.Fprintf(&b, "line %d: %s: %s\n", v.Line, v.Kind, v.Detail)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ReviewDigest lists applied assignments a human should confirm. It is empty
// when there is nothing to review.
func ReviewDigest(rep MatchReport) string {
	var lines []string
	for _, d := range rep.Decisions {
		if d.Applied && d.ReviewRecommended() {
			lines = append(lines, "- "+assignmentLine(d.Assignment))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	header := fmt.Sprintf("TTB ID review recommended (run %s", rep.RunID)
	if rep.DryRun {
		header += ", dry run"
	}
	return header + "):\n" + strings.Join(lines, "\n")
}

// AuditDigest summarises suspect identifiers for a notification.
func AuditDigest(groups []domain.SuspectGroup) string {
	if len(groups) == 0 {
		return ""
	}
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, fmt.Sprintf("%d suspect TTB IDs:", len(groups)))
	for _, g := range groups {
		lines = append(lines, "- "+suspectLine(g))
	}
	return strings.Join(lines, "\n")
}

func assignmentLine(a domain.Assignment) string {
	id := a.Identifier
	if id == "" {
		id = "-"
	}
	line := fmt.Sprintf("%s -> %s [%s] %s", a.Key, id, a.Label(), a.Reason)
	if a.Applicable() && a.ReviewRecommended() {
		line += " (review recommended)"
	}
	return line
}

func suspectLine(g domain.SuspectGroup) string {
	name := ""
	if len(g.Rows) > 0 {
		name = " " + g.Rows[0].Name
	}
	return fmt.Sprintf("TTB ID %s%s: %d rows, proof spread %.1f", g.Identifier, name, len(g.Rows), g.Spread)
}

func saveLine(dryRun, saved bool) string {
	switch {
	case dryRun:
		return "dry run: dataset not written\n"
	case saved:
		return "dataset written\n"
	default:
		return "dataset unchanged\n"
	}
}
