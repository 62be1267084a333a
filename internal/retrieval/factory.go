package retrieval

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/config"
)

// NewStore creates the vector store backend named by the configuration:
//   - "chromem" (default): embedded, no external services
//   - "qdrant": remote Qdrant server over gRPC
//
// The choice happens exactly once here; nothing downstream branches on the
// provider.
func NewStore(cfg config.RetrievalConfig, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemStore(cfg.Chromem, embedder, logger)
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q (supported: chromem, qdrant)",
			ErrInvalidConfig, cfg.Provider)
	}
}
