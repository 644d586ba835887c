package ai

import "context"

// Embedder turns review text into vectors. The ingestion pipeline embeds
// whole batches through EmbedTexts; queries go through EmbedText.
// Implementations must be safe for concurrent use, since the badger store
// embeds sub-batches in parallel.
type Embedder interface {
	// EmbedText returns the vector for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts returns one vector per text, in input order. A failure for
	// any text fails the whole call.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
