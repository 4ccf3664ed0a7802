package embeddings

import (
	"context"
	"fmt"

	"medrag/pkg/config"
)

// Embedder turns text into fixed-size vectors. Implementations are safe
// for concurrent use by multiple query pipelines.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// New selects the embedding provider from configuration.
func New(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbeddingModel), nil
	case "google":
		return NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey, cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
