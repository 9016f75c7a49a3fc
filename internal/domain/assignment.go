package domain

// Tier labels the strength of a match.
type Tier string

const (
	TierExactProof      Tier = "EXACT_PROOF"
	TierUniqueCandidate Tier = "UNIQUE_CANDIDATE"
	TierConsistentGroup Tier = "CONSISTENT_GROUP"
	TierOrdinalFallback Tier = "ORDINAL_FALLBACK"
	TierNone            Tier = "NONE"
)

// Origin tells registry matches from hand-researched identifiers.
type Origin string

const (
	OriginMatcher Origin = "matcher"
	OriginManual  Origin = "manual"
)

// Assignment is the selector's decision for a single release.
type Assignment struct {
	Key        RowKey
	Identifier string
	Reason     string
	// Tier is empty for manual assignments.
	Tier Tier
	// LowConfidence marks the clamped-index distribution.
	LowConfidence bool
	// Origin is empty or OriginMatcher for selector output.
	Origin Origin
}

// Manual reports whether the identifier was researched by hand.
func (a Assignment) Manual() bool {
	return a.Origin == OriginManual
}

// Source returns the origin with the matcher as default.
func (a Assignment) Source() Origin {
	if a.Origin == "" {
		return OriginMatcher
	}
	return a.Origin
}

// Label is the tier name, or MANUAL for imported identifiers.
func (a Assignment) Label() string {
	if a.Manual() {
		return "MANUAL"
	}
	return string(a.Tier)
}

// Applicable reports whether the assignment may be written to the dataset.
func (a Assignment) Applicable() bool {
	if a.Identifier == "" {
		return false
	}
	return a.Manual() || a.Tier != TierNone
}

// ReviewRecommended marks tiers that must be confirmed by a human.
func (a Assignment) ReviewRecommended() bool {
	return a.LowConfidence || a.Tier == TierConsistentGroup || a.Tier == TierOrdinalFallback
}

// SuspectGroup lists rows sharing an identifier whose proofs spread too far.
type SuspectGroup struct {
	Identifier string
	Rows       []Release
	Spread     float64
}
