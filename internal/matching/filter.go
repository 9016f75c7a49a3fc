package matching

import (
	"sort"
	"strconv"
	"strings"

	"WhiskeyIndex/internal/domain"
)

// Filter narrows registry candidates to those plausibly describing target.
//
// The class/type rule never empties the list: when no candidate carries the
// expected class the original list is kept. Year and proof rules are strict,
// except that candidates without an extracted proof survive the proof rule.
func Filter(candidates []domain.Candidate, target domain.Release, p Policy) []domain.Candidate {
	out := filterClass(candidates, target.Type, p)

	if year, ok := target.Year(); ok {
		out = keep(out, func(c domain.Candidate) bool {
			approved, ok := c.ApprovalYear()
			return ok && absInt(approved-year) <= p.YearWindow
		})
	}

	if proof, ok := target.ParsedProof(); ok {
		out = keep(out, func(c domain.Candidate) bool {
			return !c.HasProof() || proof.Within(*c.Proof, p.ProofWindow)
		})
	}

	return out
}

// FilterGroup filters candidates against every target of a product/year
// group and returns the union, de-duplicated and ordered by approval date.
func FilterGroup(candidates []domain.Candidate, targets []domain.Release, p Policy) []domain.Candidate {
	var union []domain.Candidate
	for _, t := range targets {
		union = append(union, Filter(candidates, t, p)...)
	}
	return OrderCandidates(union)
}

// OrderCandidates de-duplicates by identifier and sorts by approval date
// ascending; undated records go last, ties break on identifier.
func OrderCandidates(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		id := strings.TrimSpace(c.Identifier)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ApprovalDate.IsZero() != b.ApprovalDate.IsZero():
			return !a.ApprovalDate.IsZero()
		case !a.ApprovalDate.Equal(b.ApprovalDate):
			return a.ApprovalDate.Before(b.ApprovalDate)
		default:
			return a.Identifier < b.Identifier
		}
	})
	return out
}

func filterClass(candidates []domain.Candidate, productType string, p Policy) []domain.Candidate {
	productType = strings.ToLower(productType)

	var (
		rng   ClassRange
		found bool
	)
	for _, kw := range p.keywords() {
		if strings.Contains(productType, kw) {
			rng, found = p.ClassCodes[kw], true
			break
		}
	}
	if !found {
		return candidates
	}

	coded := false
	for _, c := range candidates {
		if strings.TrimSpace(c.TypeCode) != "" {
			coded = true
			break
		}
	}
	if !coded {
		return candidates
	}

	out := keep(candidates, func(c domain.Candidate) bool {
		code, err := strconv.Atoi(strings.TrimSpace(c.TypeCode))
		return err == nil && rng.Contains(code)
	})
	if len(out) == 0 {
		return candidates
	}
	return out
}

func keep(candidates []domain.Candidate, pred func(domain.Candidate) bool) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}
