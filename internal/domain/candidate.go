package domain

import (
	"strconv"
	"time"
)

// Candidate is one registry (COLA) record returned for a search query.
type Candidate struct {
	Identifier   string
	ApprovalDate time.Time
	Proof        *float64
	TypeCode     string
	BrandName    string
	FancifulName string
	RawText      string
}

// HasProof reports whether a proof was extracted for the record.
func (c Candidate) HasProof() bool {
	return c.Proof != nil
}

// ApprovalYear returns the approval year, falling back to the two leading
// digits of a 14-digit identifier (e.g. 25176001000385 -> 2025).
func (c Candidate) ApprovalYear() (int, bool) {
	if !c.ApprovalDate.IsZero() {
		return c.ApprovalDate.Year(), true
	}
	if len(c.Identifier) != 14 {
		return 0, false
	}
	yy, err := strconv.Atoi(c.Identifier[:2])
	if err != nil {
		return 0, false
	}
	return 2000 + yy, true
}

// ProofValue is a convenience constructor for Candidate.Proof.
func ProofValue(v float64) *float64 {
	return &v
}
