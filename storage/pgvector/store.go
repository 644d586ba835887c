// Package pgvector stores review documents in PostgreSQL with the pgvector
// extension, using langchaingo's pgvector store over a pgx connection pool.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	lcpgvector "github.com/tmc/langchaingo/vectorstores/pgvector"

	"github.com/wothmag07/cssm/ai"
	"github.com/wothmag07/cssm/storage"
)

// Store is a storage.VectorStore over a pgvector collection.
// It owns its connection pool.
type Store struct {
	pool   *pgxpool.Pool
	store  lcpgvector.Store
	logger *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Open connects to cfg.URL and prepares the collection tables.
//
// Returns storage.VectorStore interface to enforce abstraction.
func Open(ctx context.Context, cfg Config, embedder ai.Embedder, logger *slog.Logger) (storage.VectorStore, error) {
	if embedder == nil {
		return nil, errors.New("embedder required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	opts := []lcpgvector.Option{
		lcpgvector.WithConn(pool),
		lcpgvector.WithEmbedder(ai.AsLangchain(embedder)),
		lcpgvector.WithCollectionName(cfg.Collection),
	}
	if cfg.Dimension > 0 {
		opts = append(opts, lcpgvector.WithVectorDimensions(cfg.Dimension))
	}

	store, err := lcpgvector.New(ctx, opts...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize pgvector collection %s: %w", cfg.Collection, classify(err))
	}

	s := &Store{
		pool:   pool,
		store:  store,
		logger: logger.With("component", "pgvector-store", "collection", cfg.Collection),
	}
	s.logger.Info("opened collection")
	return s, nil
}

// AddDocuments embeds and inserts docs, returning their ids.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	ids, err := s.store.AddDocuments(ctx, docs, options...)
	if err != nil {
		return nil, classify(err)
	}
	s.logger.Debug("stored documents", "count", len(ids))
	return ids, nil
}

// SimilaritySearch returns the numDocuments documents nearest to query.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	if numDocuments <= 0 {
		return nil, fmt.Errorf("%w: numDocuments must be positive", storage.ErrInvalidQuery)
	}
	docs, err := s.store.SimilaritySearch(ctx, query, numDocuments, options...)
	if err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
