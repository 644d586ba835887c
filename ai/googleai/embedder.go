// Package googleai provides the ai.Embedder implementation for Google
// Generative AI embedding models.
package googleai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/wothmag07/cssm/ai"
)

// NewEmbedder creates a Google embedder. ctx is used to set up the client.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(ctx context.Context, config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != ai.ProviderGoogle {
		return nil, fmt.Errorf("googleai: %w: %q", ai.ErrUnknownProvider, config.Provider)
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(config.APIKey),
		googleai.WithDefaultEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai: failed to create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("googleai: failed to create embedder: %w", err)
	}

	return ai.Wrap(embedder, "googleai-embedder"), nil
}
