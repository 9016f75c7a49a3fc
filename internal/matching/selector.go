package matching

import (
	"fmt"
	"strings"

	"WhiskeyIndex/internal/domain"
)

// Select assigns identifiers to the targets of one product/year group.
//
// Rules, in priority order: a unique proof match per target, a single
// candidate for the group, indistinguishable candidates, ordinal pairing.
// Targets no rule resolves get a NONE assignment carrying the reason.
// The returned slice follows the targets' chronological order.
func Select(filtered []domain.Candidate, targets []domain.Release, p Policy) []domain.Assignment {
	cands := OrderCandidates(filtered)
	ordered := Chronological(targets)
	if len(ordered) == 0 {
		return nil
	}

	result := make([]domain.Assignment, len(ordered))
	resolved := make([]bool, len(ordered))
	claimed := map[string]bool{}

	for i, t := range ordered {
		c, ok := exactProofMatch(cands, t, p)
		if !ok {
			continue
		}
		result[i] = domain.Assignment{
			Key:        t.Key(),
			Identifier: c.Identifier,
			Tier:       domain.TierExactProof,
			Reason:     fmt.Sprintf("proof %s matches %.1f", strings.TrimSpace(t.Proof), *c.Proof),
		}
		resolved[i] = true
		claimed[c.Identifier] = true
	}

	var rest []int
	for i := range ordered {
		if !resolved[i] {
			rest = append(rest, i)
		}
	}
	if len(rest) == 0 {
		return result
	}

	var pool []domain.Candidate
	for _, c := range cands {
		if !claimed[c.Identifier] {
			pool = append(pool, c)
		}
	}

	assignAll := func(c domain.Candidate, tier domain.Tier, reason string) {
		for _, i := range rest {
			result[i] = domain.Assignment{Key: ordered[i].Key(), Identifier: c.Identifier, Tier: tier, Reason: reason}
		}
	}

	switch {
	case len(cands) == 0:
		markNone(result, ordered, rest, "no candidates after filtering")
	case len(cands) == 1:
		assignAll(cands[0], domain.TierUniqueCandidate, fmt.Sprintf("single approval shared by %d release(s)", len(rest)))
	case len(pool) == 0:
		markNone(result, ordered, rest, "every approval already claimed by a proof match")
	case len(pool) == 1:
		assignAll(pool[0], domain.TierUniqueCandidate, "only unclaimed approval")
	case consistent(pool):
		assignAll(pool[0], domain.TierConsistentGroup, fmt.Sprintf("%d approvals share brand %q / fanciful %q", len(pool), pool[0].BrandName, pool[0].FancifulName))
	case len(pool) == len(rest):
		// Targets pair in chronological batch order, not by raw label text.
		for n, i := range rest {
			result[i] = domain.Assignment{
				Key:        ordered[i].Key(),
				Identifier: pool[n].Identifier,
				Tier:       domain.TierOrdinalFallback,
				Reason:     fmt.Sprintf("position %d of %d by batch order and approval date", n+1, len(rest)),
			}
		}
	case p.ClampedFallback:
		pool = preferProof(pool, len(rest))
		for n, i := range rest {
			c := pool[min(n, len(pool)-1)]
			result[i] = domain.Assignment{
				Key:           ordered[i].Key(),
				Identifier:    c.Identifier,
				Tier:          domain.TierOrdinalFallback,
				LowConfidence: true,
				Reason:        fmt.Sprintf("clamped distribution: %d releases, %d approvals", len(rest), len(pool)),
			}
		}
	default:
		markNone(result, ordered, rest, fmt.Sprintf("ambiguous: %d releases, %d approvals", len(rest), len(pool)))
	}

	return result
}

// exactProofMatch returns the single candidate whose proof and approval year
// agree with the target; zero or several matches yield ok == false.
func exactProofMatch(cands []domain.Candidate, t domain.Release, p Policy) (domain.Candidate, bool) {
	proof, ok := t.ParsedProof()
	if !ok {
		return domain.Candidate{}, false
	}
	year, ok := t.Year()
	if !ok {
		return domain.Candidate{}, false
	}

	var (
		match domain.Candidate
		count int
	)
	for _, c := range cands {
		if !c.HasProof() || !proof.Within(*c.Proof, p.ExactProofTolerance) {
			continue
		}
		approved, ok := c.ApprovalYear()
		if !ok || absInt(approved-year) > p.YearWindow {
			continue
		}
		match = c
		count++
	}
	return match, count == 1
}

// consistent reports whether all candidates carry the same non-empty
// brand/fanciful text and so cannot be told apart by content.
func consistent(cands []domain.Candidate) bool {
	brand := normalizeText(cands[0].BrandName)
	fanciful := normalizeText(cands[0].FancifulName)
	if brand == "" && fanciful == "" {
		return false
	}
	for _, c := range cands[1:] {
		if normalizeText(c.BrandName) != brand || normalizeText(c.FancifulName) != fanciful {
			return false
		}
	}
	return true
}

// preferProof keeps at most n candidates when the pool outnumbers the
// targets, dropping approvals without an extracted proof first. Survivors
// keep their approval-date order.
func preferProof(pool []domain.Candidate, n int) []domain.Candidate {
	if len(pool) <= n {
		return pool
	}
	keep := make([]bool, len(pool))
	kept := 0
	for _, withProof := range []bool{true, false} {
		for i, c := range pool {
			if kept == n {
				break
			}
			if !keep[i] && c.HasProof() == withProof {
				keep[i] = true
				kept++
			}
		}
	}
	out := make([]domain.Candidate, 0, n)
	for i, c := range pool {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func markNone(result []domain.Assignment, ordered []domain.Release, idx []int, reason string) {
	for _, i := range idx {
		result[i] = domain.Assignment{Key: ordered[i].Key(), Tier: domain.TierNone, Reason: reason}
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
