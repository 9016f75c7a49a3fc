package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var proofExpr = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(?:-\s*(\d+(?:\.\d+)?))?`)

// RowKey identifies a dataset row for write-back.
type RowKey struct {
	Name        string
	Batch       string
	ReleaseYear string
}

func (k RowKey) String() string {
	if k.Batch == "" {
		return fmt.Sprintf("%s (%s)", k.Name, k.ReleaseYear)
	}
	return fmt.Sprintf("%s / %s (%s)", k.Name, k.Batch, k.ReleaseYear)
}

// Release is one dataset entry, optionally already carrying a TTB identifier.
type Release struct {
	Name        string
	Batch       string
	Proof       string
	ReleaseYear string
	Distillery  string
	Type        string
	Identifier  string
	// Line is the 1-based line in the dataset file, header included.
	Line int
}

// Key returns the write-back key of the release.
func (r Release) Key() RowKey {
	return RowKey{Name: r.Name, Batch: r.Batch, ReleaseYear: r.ReleaseYear}
}

// HasIdentifier reports whether the row already holds a non-empty identifier.
func (r Release) HasIdentifier() bool {
	return strings.TrimSpace(r.Identifier) != ""
}

// Year parses ReleaseYear; ok is false for anything that is not a plain integer.
func (r Release) Year() (int, bool) {
	return ParseYear(r.ReleaseYear)
}

// ParsedProof parses the Proof column.
func (r Release) ParsedProof() (Proof, bool) {
	return ParseProof(r.Proof)
}

// Proof is a single proof value or an inclusive low-high range.
type Proof struct {
	Low  float64
	High float64
}

// ParseProof accepts "125.7", "125.7 proof" and "114.2-124.4".
func ParseProof(s string) (Proof, bool) {
	m := proofExpr.FindStringSubmatch(s)
	if m == nil {
		return Proof{}, false
	}
	low, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Proof{}, false
	}
	high := low
	if m[2] != "" {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			high = v
		}
	}
	if high < low {
		low, high = high, low
	}
	return Proof{Low: low, High: high}, true
}

// Within reports whether value lies inside the proof (range) widened by tolerance.
func (p Proof) Within(value, tolerance float64) bool {
	return value >= p.Low-tolerance && value <= p.High+tolerance
}

// ParseYear parses a 4-digit year string.
func ParseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}
