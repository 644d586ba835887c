package ai

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
)

// LangchainEmbedder implements Embedder on top of a langchaingo embedder.
type LangchainEmbedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// Wrap adapts a langchaingo embedder. component names it in log output.
func Wrap(e embeddings.Embedder, component string) *LangchainEmbedder {
	return &LangchainEmbedder{
		embedder: e,
		logger:   slog.Default().With("component", component),
	}
}

// EmbedText generates a vector embedding for a single text string.
func (e *LangchainEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *LangchainEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

// Langchain returns the wrapped langchaingo embedder.
func (e *LangchainEmbedder) Langchain() embeddings.Embedder {
	return e.embedder
}

// AsLangchain adapts e to langchaingo's embeddings.Embedder.
func AsLangchain(e Embedder) embeddings.Embedder {
	if wrapped, ok := e.(*LangchainEmbedder); ok {
		return wrapped.embedder
	}
	return langchainAdapter{e}
}

type langchainAdapter struct {
	Embedder
}

func (a langchainAdapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return a.EmbedTexts(ctx, texts)
}

func (a langchainAdapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return a.EmbedText(ctx, text)
}
