package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"WhiskeyIndex/internal/domain"
)

// ParseManual reads hand-researched identifiers, one per line, in either
//
//	Product | Batch | Year | TTB_ID
//	Product, Batch, Year: TTB_ID
//
// Blank lines and lines starting with '#' are ignored.
func ParseManual(r io.Reader) ([]domain.Assignment, error) {
	var out []domain.Assignment
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, id, err := parseManualLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, domain.Assignment{
			Key:        key,
			Identifier: id,
			Reason:     "manual import",
			Origin:     domain.OriginManual,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manual input: %w", err)
	}
	return out, nil
}

func parseManualLine(text string) (domain.RowKey, string, error) {
	if strings.Contains(text, "|") {
		parts := splitTrim(text, "|")
		if len(parts) < 4 {
			return domain.RowKey{}, "", fmt.Errorf("expected 4 '|' separated fields, got %d", len(parts))
		}
		return domain.RowKey{Name: parts[0], Batch: parts[1], ReleaseYear: parts[2]}, parts[3], nil
	}

	colon := strings.LastIndex(text, ":")
	if colon < 0 {
		return domain.RowKey{}, "", fmt.Errorf("unrecognised format %q", text)
	}
	id := strings.TrimSpace(text[colon+1:])
	left := splitTrim(text[:colon], ",")
	if len(left) < 3 || id == "" {
		return domain.RowKey{}, "", fmt.Errorf("expected 'Product, Batch, Year: ID', got %q", text)
	}
	n := len(left)
	return domain.RowKey{
		Name:        strings.Join(left[:n-2], ", "),
		Batch:       left[n-2],
		ReleaseYear: left[n-1],
	}, id, nil
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
