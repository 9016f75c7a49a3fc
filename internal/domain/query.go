package domain

import (
	"fmt"
	"strings"
	"time"
)

// Query is one registry search: a product name over a completion-date range.
type Query struct {
	// Product is the dataset name the results are for.
	Product string
	// Term is what is typed into the registry's product/fanciful name box.
	Term string
	From time.Time
	To   time.Time
}

// CacheKey identifies the query in the candidate cache.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(q.Term)),
		q.From.Format("2006-01-02"),
		q.To.Format("2006-01-02"))
}

// YearQuery spans whole calendar years around releaseYear.
func YearQuery(product, term string, releaseYear, window int) Query {
	return Query{
		Product: product,
		Term:    term,
		From:    time.Date(releaseYear-window, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(releaseYear+window, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}
