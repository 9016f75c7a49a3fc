package dataset

import (
	"fmt"
	"sort"
	"strings"

	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/matching"
)

// Violation kinds reported by Check.
const (
	ViolationOrder     = "order"
	ViolationDuplicate = "duplicate"
)

// Violation is a sort-order or uniqueness problem in the dataset.
type Violation struct {
	Line   int
	Kind   string
	Detail string
}

// Check validates that rows are sorted by name then batch key and that
// (Name, Batch, ReleaseYear) is unique. It never reorders anything.
func Check(rows []domain.Release) []Violation {
	var out []Violation
	seen := map[domain.RowKey]int{}

	for i, r := range rows {
		if first, ok := seen[r.Key()]; ok {
			out = append(out, Violation{
				Line:   r.Line,
				Kind:   ViolationDuplicate,
				Detail: fmt.Sprintf("%s duplicates line %d", r.Key(), first),
			})
		} else {
			seen[r.Key()] = r.Line
		}

		if i > 0 && matching.ReleaseLess(r, rows[i-1]) {
			out = append(out, Violation{
				Line:   r.Line,
				Kind:   ViolationOrder,
				Detail: fmt.Sprintf("%s should sort before %s", r.Key(), rows[i-1].Key()),
			})
		}
	}
	return out
}

// Coverage summarises identifier coverage of the dataset.
type Coverage struct {
	Total           int
	WithIdentifier  int
	Products        int
	MissingProducts []string
}

// Percent is the share of rows holding an identifier.
func (c Coverage) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.WithIdentifier) / float64(c.Total) * 100
}

// Summarize counts rows with identifiers and lists products with none.
func Summarize(rows []domain.Release) Coverage {
	var cov Coverage
	covered := map[string]bool{}
	for _, r := range rows {
		cov.Total++
		if _, ok := covered[r.Name]; !ok {
			covered[r.Name] = false
		}
		if strings.TrimSpace(r.Identifier) != "" {
			cov.WithIdentifier++
			covered[r.Name] = true
		}
	}
	cov.Products = len(covered)
	for name, ok := range covered {
		if !ok {
			cov.MissingProducts = append(cov.MissingProducts, name)
		}
	}
	sort.Strings(cov.MissingProducts)
	return cov
}
