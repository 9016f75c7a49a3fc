package matching

import (
	"sort"
	"strings"

	"WhiskeyIndex/internal/domain"
)

// Audit groups rows by identifier and reports groups whose proof spread
// exceeds the policy limit. A new label approval is required for each
// significant proof change, so a wide spread points at a wrong assignment.
// Ranges contribute their lower bound; unparseable proofs are ignored.
func Audit(rows []domain.Release, p Policy) []domain.SuspectGroup {
	groups := map[string][]domain.Release{}
	for _, r := range rows {
		id := strings.TrimSpace(r.Identifier)
		if id == "" {
			continue
		}
		groups[id] = append(groups[id], r)
	}

	ids := make([]string, 0, len(groups))
	for id, members := range groups {
		if len(members) >= 2 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var suspects []domain.SuspectGroup
	for _, id := range ids {
		spread, ok := ProofSpread(groups[id])
		if !ok || spread <= p.MaxProofSpread {
			continue
		}
		suspects = append(suspects, domain.SuspectGroup{
			Identifier: id,
			Rows:       groups[id],
			Spread:     spread,
		})
	}
	return suspects
}

// ProofSpread returns max-min over the parseable proofs; ok is false when
// fewer than two rows have one.
func ProofSpread(rows []domain.Release) (float64, bool) {
	var (
		lo, hi float64
		n      int
	)
	for _, r := range rows {
		proof, ok := r.ParsedProof()
		if !ok {
			continue
		}
		v := proof.Low
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		n++
	}
	if n < 2 {
		return 0, false
	}
	return hi - lo, true
}
