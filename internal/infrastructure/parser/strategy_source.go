package parser

import (
	"context"
	"fmt"
	"log/slog"

	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/ports"
	"WhiskeyIndex/internal/scanner"
)

// StrategySource implements CandidateSource via registered scanner strategies.
type StrategySource struct {
	registry   *scanner.Registry
	strategies []string
	options    map[string]string
	logger     *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with the strategies to query.
func NewStrategySource(reg *scanner.Registry, strategies []string, options map[string]string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:   reg,
		strategies: strategies,
		options:    options,
		logger:     log,
	}
}

// Search runs every configured strategy and merges results, first seen wins.
func (s *StrategySource) Search(ctx context.Context, q domain.Query) ([]domain.Candidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.strategies) == 0 {
		return nil, fmt.Errorf("no scanner strategies configured")
	}

	s.debug("search", "product", q.Product, "term", q.Term,
		"from", q.From.Format("2006-01-02"), "to", q.To.Format("2006-01-02"))

	var aggregated []domain.Candidate
	seen := map[string]struct{}{}
	for _, name := range s.strategies {
		strategy, err := s.registry.Resolve(name)
		if err != nil {
			return nil, err
		}

		results, err := strategy.Scan(ctx, scanner.Request{Query: q, Options: s.options})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}

		added := 0
		for _, cand := range results {
			if _, ok := seen[cand.Identifier]; ok {
				continue
			}
			seen[cand.Identifier] = struct{}{}
			aggregated = append(aggregated, cand)
			added++
		}
		s.debug("strategy produced candidates", "strategy", name, "count", len(results), "new", added)
	}

	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
