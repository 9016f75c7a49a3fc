// Package matching holds the TTB-ID reconciliation rules: batch ordering,
// candidate filtering, match selection and the proof-spread audit.
//
// Everything here is pure: no I/O, no logging, no errors. Malformed values
// simply fail the rule that needs them.
package matching

import "sort"

// ClassRange is an inclusive range of registry class/type codes.
type ClassRange struct {
	From int
	To   int
}

// Contains reports whether code lies within the range.
func (r ClassRange) Contains(code int) bool {
	return code >= r.From && code <= r.To
}

// Policy carries the tolerances used by the filter, selector and auditor.
type Policy struct {
	// YearWindow is the allowed distance between approval and release year.
	YearWindow int
	// ProofWindow bounds the candidate filter.
	ProofWindow float64
	// ExactProofTolerance bounds the EXACT_PROOF tier.
	ExactProofTolerance float64
	// MaxProofSpread is the largest proof spread tolerated under one identifier.
	MaxProofSpread float64
	// ClassCodes maps a lower-case type keyword to its registry class range.
	ClassCodes map[string]ClassRange
	// ClampedFallback enables the clamped-index distribution when counts differ.
	ClampedFallback bool
}

// DefaultPolicy returns the tolerances the dataset was curated with.
func DefaultPolicy() Policy {
	return Policy{
		YearWindow:          1,
		ProofWindow:         1.0,
		ExactProofTolerance: 0.5,
		MaxProofSpread:      2.0,
		ClassCodes: map[string]ClassRange{
			"bourbon": {From: 101, To: 101},
			"rye":     {From: 102, To: 102},
		},
		ClampedFallback: true,
	}
}

func (p Policy) keywords() []string {
	keys := make([]string, 0, len(p.ClassCodes))
	for k := range p.ClassCodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
