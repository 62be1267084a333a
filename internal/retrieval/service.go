package retrieval

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/config"
)

var serviceTracer = otel.Tracer("atlasd.retrieval")

// Service retrieves grounding passages for a question. It over-fetches from
// the vector store, drops weak matches, reranks the survivors lexically, and
// returns at most K passages with provenance.
type Service struct {
	store     Store
	k         int
	threshold float32
	logger    *zap.Logger
}

// NewService wires a Service over an already-constructed Store.
func NewService(store Store, cfg config.RetrievalConfig, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	k := cfg.K
	if k <= 0 {
		k = 8
	}
	return &Service{
		store:     store,
		k:         k,
		threshold: cfg.ScoreThreshold,
		logger:    logger,
	}, nil
}

// Retrieve returns up to K passages relevant to the question, ordered by
// descending relevance. Retrieving nothing is a valid outcome and returns an
// empty slice, not an error; the caller decides whether an ungrounded answer
// is acceptable.
func (s *Service) Retrieve(ctx context.Context, question string) ([]answer.Passage, error) {
	ctx, span := serviceTracer.Start(ctx, "Service.Retrieve")
	defer span.End()

	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	// Over-fetch so the threshold and rerank have candidates to work with.
	fetchK := s.k * 3
	hits, err := s.store.Search(ctx, question, fetchK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching grounding index: %w", err)
	}

	kept := hits[:0:len(hits)]
	for _, h := range hits {
		if h.Score >= s.threshold {
			kept = append(kept, h)
		}
	}

	kept = rerank(question, kept)
	if len(kept) > s.k {
		kept = kept[:s.k]
	}

	passages := make([]answer.Passage, len(kept))
	for i, h := range kept {
		passages[i] = answer.Passage{
			Content: h.Content,
			Source:  h.Source,
			ChunkID: h.ID,
			Score:   h.Score,
		}
	}

	span.SetAttributes(
		attribute.Int("hits", len(hits)),
		attribute.Int("passages", len(passages)),
	)
	s.logger.Debug("retrieved passages",
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(passages)),
	)
	return passages, nil
}
