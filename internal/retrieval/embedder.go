package retrieval

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/atlasd/internal/config"
)

// langchainEmbedder adapts a langchaingo embedder to the Embedder interface.
type langchainEmbedder struct {
	inner *embeddings.EmbedderImpl
}

// NewEmbedder creates an Embedder from config. Providers:
//   - "ollama": a local Ollama server; the model must be a real embedding
//     model (bge-m3, nomic-embed-text), not a chat model.
//   - "openai": any OpenAI-compatible embeddings endpoint.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)

	switch cfg.Provider {
	case "ollama", "":
		client, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)
	case "openai":
		client, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(cfg.APIKey.Value()),
			openai.WithEmbeddingModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s embedding client: %w", cfg.Provider, err)
	}

	inner, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &langchainEmbedder{inner: inner}, nil
}

func (e *langchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedDocuments(ctx, texts)
}

func (e *langchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.inner.EmbedQuery(ctx, text)
}
