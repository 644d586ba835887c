package cssm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"github.com/wothmag07/cssm/ai"
	"github.com/wothmag07/cssm/ai/mock"
	"github.com/wothmag07/cssm/config"
	"github.com/wothmag07/cssm/storage"
)

func mockBadgerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.EmbeddingModel.Provider = "mock"
	cfg.EmbeddingModel.Dimension = 16
	cfg.VectorStore.Provider = "badger"
	cfg.Badger.Path = filepath.Join(t.TempDir(), "vectors")
	return cfg
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("mock", func(t *testing.T) {
		embedder, err := NewEmbedder(ctx, ai.NewConfig(ai.WithProvider(ai.ProviderMock), ai.WithDimension(12)))
		require.NoError(t, err)
		vector, err := embedder.EmbedText(ctx, "hello")
		require.NoError(t, err)
		assert.Len(t, vector, 12)
	})

	t.Run("openai", func(t *testing.T) {
		embedder, err := NewEmbedder(ctx, ai.NewConfig(ai.WithAPIKey("sk-test")))
		require.NoError(t, err)
		assert.NotNil(t, embedder)
	})

	t.Run("ollama", func(t *testing.T) {
		embedder, err := NewEmbedder(ctx, ai.NewConfig(
			ai.WithProvider(ai.ProviderOllama),
			ai.WithModel("nomic-embed-text")))
		require.NoError(t, err)
		assert.NotNil(t, embedder)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEmbedder(ctx, ai.NewConfig(ai.WithProvider("cohere")))
		assert.ErrorIs(t, err, ai.ErrUnknownProvider)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewEmbedder(ctx, ai.NewConfig(ai.WithProvider(ai.ProviderGoogle), ai.WithModel("text-embedding-004")))
		assert.ErrorIs(t, err, ai.ErrAPIKeyRequired)
	})
}

func TestOpenVectorStore(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder(16)

	t.Run("badger", func(t *testing.T) {
		cfg := mockBadgerConfig(t)
		store, err := OpenVectorStore(ctx, cfg, embedder, nil)
		require.NoError(t, err)
		defer store.Close()

		ids, err := store.AddDocuments(ctx, []schema.Document{{PageContent: "binoculars"}})
		require.NoError(t, err)
		assert.Len(t, ids, 1)

		_, err = os.Stat(cfg.Badger.Path)
		assert.NoError(t, err)
	})

	t.Run("astradb", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.Write([]byte(`{"status":{"ok":1}}`))
		}))
		defer srv.Close()

		cfg := config.DefaultConfig()
		cfg.AstraDB.APIEndpoint = srv.URL
		cfg.AstraDB.ApplicationToken = "AstraCS:test"
		cfg.AstraDB.Dimension = 16

		store, err := OpenVectorStore(ctx, cfg, embedder, nil)
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, 1, calls, "collection is created on open")
	})

	t.Run("astradb missing credentials", func(t *testing.T) {
		_, err := OpenVectorStore(ctx, config.DefaultConfig(), embedder, nil)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.VectorStore.Provider = "chroma"
		_, err := OpenVectorStore(ctx, cfg, embedder, nil)
		assert.ErrorIs(t, err, storage.ErrUnknownBackend)
	})
}

func TestOpen(t *testing.T) {
	cfg := mockBadgerConfig(t)
	store, embedder, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.NotNil(t, embedder)

	cfg.EmbeddingModel.Provider = "cohere"
	_, _, err = Open(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ai.ErrUnknownProvider)
}
