package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/scanner"
)

// ResultsOption names the request option carrying the saved results path.
const ResultsOption = "results"

// FileScanner answers searches from a JSON file of saved registry results:
//
//	{"Booker's": [{"TTB ID": "25010001000001", "Completed Date": "01/15/2025", ...}]}
//
// Keys are search terms or dataset product names.
type FileScanner struct {
	path   string
	logger *slog.Logger
}

// NewFileScanner builds a scanner reading path unless a request overrides it.
func NewFileScanner(path string, log *slog.Logger) *FileScanner {
	return &FileScanner{path: path, logger: log}
}

// Name identifies the strategy inside the registry.
func (f *FileScanner) Name() string {
	return "file"
}

// Scan returns the saved results for the query term (or product name),
// restricted to the query's completion-date range where dates are known.
func (f *FileScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := req.Option(ResultsOption, f.path)
	if path == "" {
		return nil, fmt.Errorf("no results file configured")
	}
	saved, err := loadSavedResults(path)
	if err != nil {
		return nil, err
	}

	rows, ok := lookupResults(saved, req.Query.Term)
	if !ok {
		rows, ok = lookupResults(saved, req.Query.Product)
	}
	if !ok {
		f.debug("no saved results", "term", req.Query.Term, "path", path)
		return nil, nil
	}

	var out []domain.Candidate
	seen := map[string]struct{}{}
	for _, fields := range rows {
		cand, ok := fields.Candidate()
		if !ok {
			continue
		}
		if _, dup := seen[cand.Identifier]; dup {
			continue
		}
		if !inRange(cand, req.Query) {
			continue
		}
		seen[cand.Identifier] = struct{}{}
		out = append(out, cand)
	}
	return out, nil
}

func loadSavedResults(path string) (map[string][]Fields, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", path, err)
	}

	var decoded map[string][]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", path, err)
	}

	out := make(map[string][]Fields, len(decoded))
	for key, rows := range decoded {
		for _, row := range rows {
			fields := make(Fields, len(row))
			for k, v := range row {
				fields[k] = stringify(v)
			}
			out[key] = append(out[key], fields)
		}
	}
	return out, nil
}

func lookupResults(saved map[string][]Fields, key string) ([]Fields, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	if rows, ok := saved[key]; ok {
		return rows, true
	}
	for k, rows := range saved {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return rows, true
		}
	}
	return nil, false
}

func inRange(c domain.Candidate, q domain.Query) bool {
	if c.ApprovalDate.IsZero() {
		return true
	}
	if !q.From.IsZero() && c.ApprovalDate.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && c.ApprovalDate.After(q.To) {
		return false
	}
	return true
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func (f *FileScanner) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
