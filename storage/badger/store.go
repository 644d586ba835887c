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


package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/wothmag07/cssm/ai"
	"github.com/wothmag07/cssm/core"
	"github.com/wothmag07/cssm/storage"
)

const (
	// DefaultCollection is used when no collection is configured.
	DefaultCollection = "reviews"

	// DefaultEmbedBatchSize is the number of texts sent to the embedder per call.
	DefaultEmbedBatchSize = 16
)

// Store is an embedded vector store backed by BadgerDB.
// Documents are keyed by a hash of their content and metadata, so writing
// the same document twice keeps a single copy.
type Store struct {
	backend        *Backend
	ownsBackend    bool
	embedder       ai.Embedder
	collection     string
	pool           *ants.Pool
	embedBatchSize int
	logger         *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithCollection sets the collection documents are written to.
func WithCollection(name string) Option {
	return func(s *Store) error {
		if name == "" {
			return errors.New("collection name cannot be empty")
		}
		s.collection = name
		return nil
	}
}

// WithPoolSize sets the number of concurrent embedding calls.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithEmbedBatchSize sets how many texts go to the embedder per call.
func WithEmbedBatchSize(n int) Option {
	return func(s *Store) error {
		if n < 1 {
			return errors.New("embed batch size must be positive")
		}
		s.embedBatchSize = n
		return nil
	}
}

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

// NewStore creates a store on an open backend. The caller keeps ownership of
// the backend.
func NewStore(backend *Backend, embedder ai.Embedder, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	if embedder == nil {
		return nil, errors.New("embedder required")
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		backend:        backend,
		embedder:       embedder,
		collection:     DefaultCollection,
		pool:           pool,
		embedBatchSize: DefaultEmbedBatchSize,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "badger-store", "collection", s.collection)
	return s, nil
}

// Open opens (or creates) a store in the directory at path.
//
// Returns storage.VectorStore interface to enforce abstraction.
func Open(path string, embedder ai.Embedder, opts ...Option) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}

	s, err := NewStore(backend, embedder, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}

// Close releases the worker pool and, when the store opened it, the database.
func (s *Store) Close() error {
	s.pool.Release()
	if s.ownsBackend {
		return s.backend.Close()
	}
	return nil
}

// AddDocuments embeds docs and stores them. It returns one id per stored
// document, in input order. Documents rejected by a Deduplicater option are
// skipped and get no id.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	if s.backend.IsClosed() {
		return nil, storage.Permanent(storage.ErrStorageClosed)
	}

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
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	stored := make([]*storage.StoredDocument, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		id, err := documentID(doc)
		if err != nil {
			return nil, storage.Permanent(err)
		}
		stored[i] = &storage.StoredDocument{
			ID:       id,
			Content:  doc.PageContent,
			Metadata: doc.Metadata,
			Vector:   NormalizeVector(vectors[i]),
		}
		ids[i] = FormatID(id)
	}

	err = s.backend.PutDocuments(collection, stored)
	if err != nil {
		return nil, fmt.Errorf("failed to store documents: %w", err)
	}

	s.logger.Debug("stored documents", "count", len(stored))
	return ids, nil
}

// embedAll embeds texts in sub-batches on the worker pool and reassembles
// the vectors in input order.
func (s *Store) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for start := 0; start < len(texts); start += s.embedBatchSize {
		end := min(start+s.embedBatchSize, len(texts))
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}

			batch, err := s.embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("failed to generate embeddings: %w", err))
				return
			}
			if len(batch) != end-start {
				fail(storage.Permanent(fmt.Errorf("%w: expected %d, got %d",
					storage.ErrEmbeddingMismatch, end-start, len(batch))))
				return
			}
			copy(vectors[start:end], batch)
		})
		if err != nil {
			wg.Done()
			fail(storage.Permanent(fmt.Errorf("failed to schedule embedding: %w", err)))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// SimilaritySearch returns the numDocuments stored documents closest to query.
// ScoreThreshold and equality Filters (map[string]any over metadata) are honored.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	if numDocuments <= 0 {
		return nil, fmt.Errorf("%w: numDocuments must be positive", storage.ErrInvalidQuery)
	}
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
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
		filter = f
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// A zero threshold means unset.
	minScore := float32(-math.MaxFloat32)
	if opts.ScoreThreshold != 0 {
		minScore = opts.ScoreThreshold
	}

	results, err := s.backend.FindSimilar(ctx, collection, NormalizeVector(vector), minScore, numDocuments, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(results))
	for i, result := range results {
		docs[i] = schema.Document{
			PageContent: result.Document.Content,
			Metadata:    result.Document.Metadata,
			Score:       result.Score,
		}
	}
	return docs, nil
}

// Count returns the number of documents in the store's collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.backend.CountDocuments(ctx, s.collection)
}

// documentID hashes a document's content together with its metadata.
func documentID(doc schema.Document) (core.ID, error) {
	// json.Marshal writes map keys in sorted order.
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return core.IDFromContent(doc.PageContent + "\x00" + string(meta)), nil
}

// FormatID renders an ID the way AddDocuments returns it.
func FormatID(id core.ID) string {
	return fmt.Sprintf("%016x", uint64(id))
}
