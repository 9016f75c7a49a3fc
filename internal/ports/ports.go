package ports

import (
	"context"

	"WhiskeyIndex/internal/domain"
)

// CandidateSource pulls registry (COLA) records for a product query.
type CandidateSource interface {
	Search(ctx context.Context, q domain.Query) ([]domain.Candidate, error)
}

// CandidateCache keeps search results so reruns do not hit the registry.
type CandidateCache interface {
	LoadCandidates(ctx context.Context, q domain.Query) ([]domain.Candidate, bool, error)
	SaveCandidates(ctx context.Context, q domain.Query, candidates []domain.Candidate) error
}

// DecisionLog persists every assignment decision for later review.
type DecisionLog interface {
	RecordDecisions(ctx context.Context, run domain.Run, decisions []domain.Decision) error
}

// Notifier streams review digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Pacer spaces out requests to a remote service.
type Pacer interface {
	Wait(ctx context.Context) error
}
