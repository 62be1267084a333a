// Package retrieval serves ranked grounding passages with provenance for
// generative answers.
//
// The vector store behind it is pluggable: an embedded chromem-go database
// (default, zero external services) or a remote Qdrant server over gRPC.
// The backend is chosen once at construction via the config factory; callers
// only see the Store interface.
package retrieval

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when the grounding collection does
	// not exist yet (index never built).
	ErrCollectionNotFound = errors.New("grounding collection not found")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the remote store is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// Document is one grounding chunk to index.
type Document struct {
	// ID is the chunk id, stable across rebuilds of the same corpus.
	ID string
	// Content is the chunk text.
	Content string
	// Source labels where the chunk came from (e.g. "spaces",
	// "utilization_30d").
	Source string
}

// Result is one similarity-search hit.
type Result struct {
	ID      string
	Content string
	Source  string
	Score   float32
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector storage interface. Query-time behavior is the
// contract that matters here: bounded result count, descending score order,
// no side effects on the index.
type Store interface {
	// Add indexes documents. Used only by the offline index build.
	Add(ctx context.Context, docs []Document) error

	// Search returns up to k results ordered by descending similarity.
	Search(ctx context.Context, query string, k int) ([]Result, error)

	// Close releases backend resources.
	Close() error
}
