package usecase

import (
	"regexp"
	"strings"
)

var trailingAbbrevExpr = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// Products controls which dataset products are searched and under which term.
type Products struct {
	// Aliases maps a dataset name to the registry search term.
	Aliases map[string]string
	// Exclude lists dataset names never searched.
	Exclude []string
}

// SearchTerm returns the alias for name, or name without a trailing
// parenthetical abbreviation ("George T. Stagg (GTS)" -> "George T. Stagg").
func (p Products) SearchTerm(name string) string {
	if term, ok := p.Aliases[name]; ok && strings.TrimSpace(term) != "" {
		return strings.TrimSpace(term)
	}
	if stripped := strings.TrimSpace(trailingAbbrevExpr.ReplaceAllString(name, "")); stripped != "" {
		return stripped
	}
	return strings.TrimSpace(name)
}

// Excluded reports whether name is on the configured or the extra exclude list.
func (p Products) Excluded(name string, extra []string) bool {
	return containsFold(p.Exclude, name) || containsFold(extra, name)
}

func containsFold(list []string, name string) bool {
	name = strings.TrimSpace(name)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), name) {
			return true
		}
	}
	return false
}
