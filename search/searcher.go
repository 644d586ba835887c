package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/wothmag07/cssm/core"
)

const (
	// DefaultOverfetch is how many candidates are fetched per requested hit.
	DefaultOverfetch = 3

	// verbatimBoost is added to the similarity of a candidate containing every query word.
	verbatimBoost = 0.3
)

// Result is one ranked search hit.
type Result struct {
	Document schema.Document
	Score    float32

	// Similarity is the score reported by the store before re-ranking.
	Similarity float32
	Verbatim   bool
}

// Searcher runs re-ranked similarity queries against a vector store.
type Searcher struct {
	store     vectorstores.VectorStore
	threshold float32
	overfetch int
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithScoreThreshold drops candidates the store scores below threshold.
func WithScoreThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		s.threshold = threshold
		return nil
	}
}

// WithOverfetch sets how many candidates are fetched per requested hit.
func WithOverfetch(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return errors.New("overfetch must be at least 1")
		}
		s.overfetch = n
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store vectorstores.VectorStore, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Searcher{
		store:     store,
		overfetch: DefaultOverfetch,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// FindSimilar returns up to maxHits reviews similar to the query, ranked by
// relevance score. filter restricts candidates by metadata equality and may be nil.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int, filter map[string]any) ([]*Result, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, filter, nil)
}

// FindSimilarWithMonitor is FindSimilar with a monitor receiving a callback
// at each stage of the search.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, filter map[string]any, monitor SearchMonitor) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, ErrInvalidLimit
	}
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	var opts []vectorstores.Option
	if s.threshold != 0 {
		opts = append(opts, vectorstores.WithScoreThreshold(s.threshold))
	}
	if len(filter) > 0 {
		opts = append(opts, vectorstores.WithFilters(filter))
	}

	candidates, err := s.store.SimilaritySearch(ctx, query, maxHits*s.overfetch, opts...)
	if err != nil {
		s.logger.Error("error querying for similar reviews", "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(candidates)

	results := make([]*Result, 0, len(candidates))
	for _, doc := range candidates {
		result := &Result{Document: doc, Score: doc.Score, Similarity: doc.Score}
		if containsAllQueryWords(doc.PageContent, query) {
			result.Score += verbatimBoost
			result.Verbatim = true
			monitor.VerbatimHit(doc)
		} else {
			monitor.SemanticHit(doc)
		}
		results = append(results, result)
	}

	// Sort by score descending, keeping store order for ties
	slices.SortStableFunc(results, func(a, b *Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}

// SmokeCheck runs one query against a freshly ingested store and logs the
// hits. Failures are logged and reported as false; they never abort the caller.
func SmokeCheck(ctx context.Context, store vectorstores.VectorStore, query string, k int, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "smoke-check")

	searcher, err := NewSearcher(store, WithLogger(logger))
	if err != nil {
		logger.Warn("smoke check skipped", "err", err)
		return false
	}

	results, err := searcher.FindSimilar(ctx, query, k, nil)
	if err != nil {
		logger.Warn("smoke check query failed", "query", query, "err", err)
		return false
	}

	logger.Info("smoke check query", "query", query, "hits", len(results))
	for i, r := range results {
		productID, _ := r.Document.Metadata[core.MetaProductID].(string)
		logger.Info("smoke check hit",
			"rank", i+1,
			"score", r.Score,
			"product_id", productID,
			"content", snippet(r.Document.PageContent, 120))
	}
	return true
}
