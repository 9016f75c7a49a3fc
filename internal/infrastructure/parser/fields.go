package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"WhiskeyIndex/internal/domain"
)

// Result table column names as printed by the COLA public search.
const (
	FieldIdentifier    = "TTB ID"
	FieldPermit        = "Permit No."
	FieldSerial        = "Serial Number"
	FieldCompletedDate = "Completed Date"
	FieldFancifulName  = "Fanciful Name"
	FieldBrandName     = "Brand Name"
	FieldOrigin        = "Origin"
	FieldOriginDesc    = "Origin Desc"
	FieldClassType     = "Class/Type"
	FieldClassTypeDesc = "Class/Type Desc"
	FieldProof         = "Proof"
)

// resultColumns is the column order of the results table when it has no header row.
var resultColumns = []string{
	FieldIdentifier, FieldPermit, FieldSerial, FieldCompletedDate, FieldFancifulName,
	FieldBrandName, FieldOrigin, FieldOriginDesc, FieldClassType, FieldClassTypeDesc,
}

// aliases accepted in saved result files.
var fieldAliases = map[string]string{
	"ttb_id":        FieldIdentifier,
	"ttbid":         FieldIdentifier,
	"date":          FieldCompletedDate,
	"completed":     FieldCompletedDate,
	"serial":        FieldSerial,
	"dsp":           FieldPermit,
	"proof":         FieldProof,
	"class":         FieldClassType,
	"brand":         FieldBrandName,
	"fanciful":      FieldFancifulName,
	"fanciful_name": FieldFancifulName,
	"brand_name":    FieldBrandName,
}

var (
	ttbIDExpr         = regexp.MustCompile(`ttbid=(\d+)`)
	proofTextExpr     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*proof`)
	alcoholContentExp = regexp.MustCompile(`(?i)alcohol\s+content[:\s]+(\d+(?:\.\d+)?)`)
	percentAlcExpr    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*alc`)
)

var dateLayouts = []string{"01/02/2006", "1/2/2006", "2006-01-02"}

// Fields is one registry result as a raw column name -> text dictionary.
type Fields map[string]string

// Get returns a field by its canonical name, honouring saved-file aliases.
func (f Fields) Get(name string) string {
	if v, ok := f[name]; ok {
		return strings.TrimSpace(v)
	}
	for alias, canonical := range fieldAliases {
		if canonical != name {
			continue
		}
		if v, ok := f[alias]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Candidate converts a raw result into a domain candidate; ok is false when
// no identifier can be found. Unparseable dates and proofs are left empty.
func (f Fields) Candidate() (domain.Candidate, bool) {
	id := f.Get(FieldIdentifier)
	if m := ttbIDExpr.FindStringSubmatch(id); m != nil {
		id = m[1]
	}
	if id == "" {
		return domain.Candidate{}, false
	}

	c := domain.Candidate{
		Identifier:   id,
		ApprovalDate: parseDate(f.Get(FieldCompletedDate)),
		TypeCode:     f.Get(FieldClassType),
		BrandName:    f.Get(FieldBrandName),
		FancifulName: f.Get(FieldFancifulName),
		RawText:      f.text(),
	}
	if raw := f.Get(FieldProof); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			c.Proof = domain.ProofValue(v)
		}
	}
	return c, true
}

func (f Fields) text() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(f[k]); v != "" {
			parts = append(parts, k+": "+v)
		}
	}
	return strings.Join(parts, "; ")
}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ExtractProof finds a proof on a COLA detail page. Alcohol percentages are
// doubled.
func ExtractProof(text string) (float64, bool) {
	if m := proofTextExpr.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	for _, expr := range []*regexp.Regexp{alcoholContentExp, percentAlcExpr} {
		m := expr.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v * 2, true
		}
	}
	return 0, false
}
