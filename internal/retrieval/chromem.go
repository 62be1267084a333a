package retrieval

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/config"
)

var chromemTracer = otel.Tracer("atlasd.retrieval.chromem")

// ChromemStore is the embedded backend, built on chromem-go.
//
// chromem-go is a pure-Go vector database with gob-file persistence: no
// external service, no CGO. Plenty for a grounding corpus of a few thousand
// chunks.
type ChromemStore struct {
	db         *chromem.DB
	embedder   Embedder
	collection string
	logger     *zap.Logger
}

// NewChromemStore opens (or creates) the persistent database at cfg.Path.
func NewChromemStore(cfg config.ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	logger.Info("chromem store opened",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
	)

	return &ChromemStore{
		db:         db,
		embedder:   embedder,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

func (s *ChromemStore) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Add indexes documents into the grounding collection.
func (s *ChromemStore) Add(ctx context.Context, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Add")
	defer span.End()
	span.SetAttributes(attribute.Int("document_count", len(docs)))

	if len(docs) == 0 {
		return ErrEmptyDocuments
	}

	collection, err := s.db.GetOrCreateCollection(s.collection, nil, s.embedFunc())
	if err != nil {
		return fmt.Errorf("getting collection %s: %w", s.collection, err)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("embedding documents: %w", err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Embedding: vectors[i],
			Metadata:  map[string]string{"source": d.Source},
		}
	}

	// Concurrency 1: embeddings are already computed above.
	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	s.logger.Debug("indexed documents",
		zap.String("collection", s.collection),
		zap.Int("count", len(docs)),
	)
	return nil
}

// Search returns up to k hits ordered by descending similarity.
func (s *ChromemStore) Search(ctx context.Context, query string, k int) ([]Result, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	collection := s.db.GetCollection(s.collection, s.embedFunc())
	if collection == nil {
		span.SetStatus(codes.Error, "collection not found")
		return nil, ErrCollectionNotFound
	}

	// chromem requires k <= document count.
	docCount := collection.Count()
	if docCount == 0 {
		return []Result{}, nil
	}
	if k > docCount {
		k = docCount
	}

	hits, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.collection, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:      h.ID,
			Content: h.Content,
			Source:  h.Metadata["source"],
			Score:   h.Similarity,
		}
	}
	return results, nil
}

// Close is a no-op: chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}
