package provider

import (
	"context"
	"fmt"

	"gossipsearch/config"
	openai_provider "gossipsearch/provider/openai"
	tei_provider "gossipsearch/provider/tei"
)

// Embedder maps text to fixed-length vectors. Implementations must be safe
// for concurrent use; the search path shares one instance across requests.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the length of vectors this embedder produces.
	Dimension() int
}

// NewEmbedder creates an embedding client based on the provided configuration
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return openai_provider.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.Dimension, cfg.Timeout), nil
	case "tei":
		return tei_provider.NewClient(cfg.TEI.BaseURL, cfg.Dimension, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
