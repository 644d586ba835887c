// Package ollama provides the ai.Embedder implementation for a local Ollama server.
package ollama

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/wothmag07/cssm/ai"
)

// DefaultHost is the address of a locally running Ollama server.
const DefaultHost = "http://localhost:11434"

// NewEmbedder creates an Ollama embedder. An empty host uses DefaultHost.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != ai.ProviderOllama {
		return nil, fmt.Errorf("ollama: %w: %q", ai.ErrUnknownProvider, config.Provider)
	}

	host := config.Host
	if host == "" {
		host = DefaultHost
	}

	client, err := ollama.New(
		ollama.WithServerURL(host),
		ollama.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create embedder: %w", err)
	}

	return ai.Wrap(embedder, "ollama-embedder"), nil
}
