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


package astradb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/wothmag07/cssm/ai"
	"github.com/wothmag07/cssm/storage"
)

// idNamespace seeds the name-based document ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/wothmag07/cssm/reviews"))

// Store is a storage.VectorStore over one Astra DB collection.
type Store struct {
	client          *Client
	embedder        ai.Embedder
	collection      string
	insertBatchSize int
	logger          *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithClient replaces the Data API client built from the configuration.
func WithClient(client *Client) Option {
	return func(s *Store) error {
		if client == nil {
			return errors.New("client cannot be nil")
		}
		s.client = client
		return nil
	}
}

// Open validates cfg, creates the collection when cfg.Dimension is set, and
// returns a store writing to it.
//
// Returns storage.VectorStore interface to enforce abstraction.
func Open(ctx context.Context, cfg Config, embedder ai.Embedder, opts ...Option) (storage.VectorStore, error) {
	s, err := NewStore(cfg, embedder, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Dimension > 0 {
		if err := s.client.CreateCollection(ctx, s.collection, cfg.Dimension); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}
	}
	s.logger.Info("opened collection")
	return s, nil
}

// NewStore creates a store without touching the database.
func NewStore(cfg Config, embedder ai.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("embedder required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		embedder:        embedder,
		collection:      cfg.Collection,
		insertBatchSize: cfg.InsertBatchSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.client == nil {
		client, err := NewClient(cfg, WithClientLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	s.logger = s.logger.With("component", "astradb-store", "collection", s.collection)
	return s, nil
}

// Close releases idle HTTP connections.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// AddDocuments embeds docs and inserts them, at most the configured insert
// batch size per request. Ids are returned in input order.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	collection := s.collection
	if opts.NameSpace != "" {
		collection = opts.NameSpace
	}

	if opts.Deduplicater != nil {
		kept := make([]schema.Document, 0, len(docs))
		for _, doc := range docs {
			if !opts.Deduplicater(ctx, doc) {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}
	if len(docs) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, storage.Permanent(fmt.Errorf("%w: expected %d, got %d",
			storage.ErrEmbeddingMismatch, len(docs), len(vectors)))
	}

	records := make([]Document, len(docs))
	for i, doc := range docs {
		id, err := DocumentID(doc)
		if err != nil {
			return nil, storage.Permanent(err)
		}
		records[i] = Document{
			ID:       id,
			Content:  doc.PageContent,
			Metadata: doc.Metadata,
			Vector:   vectors[i],
		}
	}

	ids := make([]string, 0, len(records))
	for start := 0; start < len(records); start += s.insertBatchSize {
		end := min(start+s.insertBatchSize, len(records))
		batchIDs, err := s.client.InsertMany(ctx, collection, records[start:end])
		if err != nil {
			return nil, err
		}
		ids = append(ids, batchIDs...)
	}
	return ids, nil
}

// SimilaritySearch returns the numDocuments documents nearest to query.
// Filters (map[string]any) match metadata keys by equality; ScoreThreshold
// drops results below that similarity.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	if numDocuments <= 0 {
		return nil, fmt.Errorf("%w: numDocuments must be positive", storage.ErrInvalidQuery)
	}

	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	collection := s.collection
	if opts.NameSpace != "" {
		collection = opts.NameSpace
	}

	var filter map[string]any
	if opts.Filters != nil {
		f, ok := opts.Filters.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: filters must be map[string]any", storage.ErrInvalidQuery)
		}
		filter = make(map[string]any, len(f))
		for k, v := range f {
			filter["metadata."+k] = v
		}
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	found, err := s.client.Find(ctx, collection, vector, filter, numDocuments)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(found))
	for _, d := range found {
		if opts.ScoreThreshold != 0 && d.Similarity < opts.ScoreThreshold {
			continue
		}
		docs = append(docs, schema.Document{
			PageContent: d.Content,
			Metadata:    d.Metadata,
			Score:       d.Similarity,
		})
	}
	return docs, nil
}

// DocumentID derives the stored _id of doc from its content and metadata.
func DocumentID(doc schema.Document) (string, error) {
	// json.Marshal writes map keys in sorted order.
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	name := make([]byte, 0, len(doc.PageContent)+1+len(meta))
	name = append(name, doc.PageContent...)
	name = append(name, 0)
	name = append(name, meta...)
	return uuid.NewSHA1(idNamespace, name).String(), nil
}
