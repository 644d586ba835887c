// Copyright 2025 The cssm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package cssm wires the review ingestion pipeline together: it builds the
// configured embedder and vector store and runs merge, transform, ingest and
// the smoke check with failures tagged by phase.
package cssm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wothmag07/cssm/ai"
	"github.com/wothmag07/cssm/ai/googleai"
	"github.com/wothmag07/cssm/ai/mock"
	"github.com/wothmag07/cssm/ai/ollama"
	"github.com/wothmag07/cssm/ai/openai"
	"github.com/wothmag07/cssm/config"
	"github.com/wothmag07/cssm/storage"
	"github.com/wothmag07/cssm/storage/astradb"
	"github.com/wothmag07/cssm/storage/badger"
	"github.com/wothmag07/cssm/storage/pgvector"
)

// NewEmbedder creates the embedder selected by cfg.Provider.
func NewEmbedder(ctx context.Context, cfg *ai.Config) (ai.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewEmbedder(cfg)
	case ai.ProviderGoogle:
		return googleai.NewEmbedder(ctx, cfg)
	case ai.ProviderOllama:
		return ollama.NewEmbedder(cfg)
	case ai.ProviderMock:
		return mock.NewEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.Provider)
	}
}

// OpenVectorStore opens the store selected by cfg.VectorStore.Provider.
// The caller must Close it.
func OpenVectorStore(ctx context.Context, cfg *config.Config, embedder ai.Embedder, logger *slog.Logger) (storage.VectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := storage.ParseBackend(cfg.VectorStore.Provider)
	if err != nil {
		return nil, err
	}

	switch backend {
	case storage.BackendAstraDB:
		return astradb.Open(ctx, cfg.AstraDBConfig(), embedder, astradb.WithLogger(logger))
	case storage.BackendBadger:
		return badger.Open(cfg.Badger.Path, embedder, badger.WithLogger(logger))
	case storage.BackendPGVector:
		return pgvector.Open(ctx, cfg.PGVectorConfig(), embedder, logger)
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, backend)
	}
}

// Open builds the embedder and store described by cfg.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.VectorStore, ai.Embedder, error) {
	embedder, err := NewEmbedder(ctx, cfg.AIConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	store, err := OpenVectorStore(ctx, cfg, embedder, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s vector store: %w", cfg.VectorStore.Provider, err)
	}
	return store, embedder, nil
}
