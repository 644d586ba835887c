package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/wothmag07/cssm/ai/mock"
	"github.com/wothmag07/cssm/storage/badger"
)

// fakeStore is a vectorstores.VectorStore with injectable search behavior.
type fakeStore struct {
	SimilaritySearchFunc func(ctx context.Context, query string, n int, opts vectorstores.Options) ([]schema.Document, error)
	lastN                int
	lastOpts             vectorstores.Options
}

func (f *fakeStore) AddDocuments(context.Context, []schema.Document, ...vectorstores.Option) ([]string, error) {
	return nil, errors.New("not supported")
}

func (f *fakeStore) SimilaritySearch(ctx context.Context, query string, n int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	f.lastN = n
	f.lastOpts = opts
	if f.SimilaritySearchFunc != nil {
		return f.SimilaritySearchFunc(ctx, query, n, opts)
	}
	return nil, nil
}

func returning(docs ...schema.Document) *fakeStore {
	return &fakeStore{SimilaritySearchFunc: func(context.Context, string, int, vectorstores.Options) ([]schema.Document, error) {
		return docs, nil
	}}
}

// recordingMonitor counts the callbacks it receives.
type recordingMonitor struct {
	started    string
	candidates int
	semantic   int
	verbatim   int
	finished   int
}

func (m *recordingMonitor) Start(query string)                         { m.started = query }
func (m *recordingMonitor) AfterSemanticSearch(docs []schema.Document) { m.candidates = len(docs) }
func (m *recordingMonitor) SemanticHit(schema.Document)                { m.semantic++ }
func (m *recordingMonitor) VerbatimHit(schema.Document)                { m.verbatim++ }
func (m *recordingMonitor) Finish(results []*Result)                   { m.finished = len(results) }

func TestNewSearcher(t *testing.T) {
	store := &fakeStore{}

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(store, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewSearcher(nil)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("invalid overfetch", func(t *testing.T) {
		_, err := NewSearcher(store, WithOverfetch(0))
		assert.Error(t, err)
	})
}

func TestFindSimilar_InvalidArguments(t *testing.T) {
	searcher, err := NewSearcher(&fakeStore{})
	require.NoError(t, err)

	_, err = searcher.FindSimilar(context.Background(), "   ", 3, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = searcher.FindSimilar(context.Background(), "binoculars", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestFindSimilar_VerbatimBoostReranks(t *testing.T) {
	store := returning(
		schema.Document{PageContent: "A solid scope for the range", Score: 0.80},
		schema.Document{PageContent: "These binoculars are great for hunting trips.", Score: 0.70},
		schema.Document{PageContent: "Hunting jacket, warm", Score: 0.60},
	)
	searcher, err := NewSearcher(store)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.FindSimilarWithMonitor(context.Background(),
		"Can you recommend me binoculars for hunting?", 2, nil, monitor)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "These binoculars are great for hunting trips.", results[0].Document.PageContent)
	assert.True(t, results[0].Verbatim)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.7, results[0].Similarity, 1e-6)
	assert.Equal(t, "A solid scope for the range", results[1].Document.PageContent)
	assert.False(t, results[1].Verbatim)

	assert.Equal(t, 6, store.lastN, "fetches overfetch candidates per hit")
	assert.Equal(t, "Can you recommend me binoculars for hunting?", monitor.started)
	assert.Equal(t, 3, monitor.candidates)
	assert.Equal(t, 1, monitor.verbatim)
	assert.Equal(t, 2, monitor.semantic)
	assert.Equal(t, 2, monitor.finished)
}

func TestFindSimilar_PassesOptions(t *testing.T) {
	store := &fakeStore{}
	searcher, err := NewSearcher(store, WithScoreThreshold(0.5), WithOverfetch(1))
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "tent", 4, map[string]any{"product_id": "P1"})
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Equal(t, 4, store.lastN)
	assert.Equal(t, float32(0.5), store.lastOpts.ScoreThreshold)
	assert.Equal(t, map[string]any{"product_id": "P1"}, store.lastOpts.Filters)
}

func TestFindSimilar_StoreError(t *testing.T) {
	boom := errors.New("store offline")
	store := &fakeStore{SimilaritySearchFunc: func(context.Context, string, int, vectorstores.Options) ([]schema.Document, error) {
		return nil, boom
	}}
	searcher, err := NewSearcher(store)
	require.NoError(t, err)

	_, err = searcher.FindSimilar(context.Background(), "tent", 1, nil)
	assert.ErrorIs(t, err, boom)
}

func TestFindSimilar_AgainstBadgerStore(t *testing.T) {
	store, err := badger.NewMemoryStore(mock.NewMockEmbedder(32))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.AddDocuments(ctx, []schema.Document{
		{PageContent: "binoculars for hunting", Metadata: map[string]any{"product_id": "B1"}},
		{PageContent: "waterproof tent", Metadata: map[string]any{"product_id": "T1"}},
		{PageContent: "camp stove", Metadata: map[string]any{"product_id": "S1"}},
	})
	require.NoError(t, err)

	searcher, err := NewSearcher(store)
	require.NoError(t, err)

	results, err := searcher.FindSimilar(ctx, "binoculars for hunting", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "B1", results[0].Document.Metadata["product_id"])
	assert.True(t, results[0].Verbatim)
}

func TestSmokeCheck(t *testing.T) {
	t.Run("logs hits", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		store := returning(schema.Document{
			PageContent: "Great binoculars for hunting",
			Metadata:    map[string]any{"product_id": "B1"},
			Score:       0.9,
		})

		ok := SmokeCheck(context.Background(), store, "binoculars for hunting", 4, logger)
		assert.True(t, ok)
		assert.Contains(t, buf.String(), "smoke check hit")
		assert.Contains(t, buf.String(), "product_id=B1")
	})

	t.Run("failure is logged only", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		store := &fakeStore{SimilaritySearchFunc: func(context.Context, string, int, vectorstores.Options) ([]schema.Document, error) {
			return nil, errors.New("timeout")
		}}

		ok := SmokeCheck(context.Background(), store, "binoculars", 4, logger)
		assert.False(t, ok)
		assert.Contains(t, buf.String(), "smoke check query failed")
	})

	t.Run("nil store", func(t *testing.T) {
		assert.False(t, SmokeCheck(context.Background(), nil, "q", 1, nil))
	})
}

func TestContainsAllQueryWords(t *testing.T) {
	assert.True(t, containsAllQueryWords("Binoculars, great for HUNTING!", "binoculars for hunting?"))
	assert.False(t, containsAllQueryWords("binoculars", "binoculars for hunting"))
	assert.False(t, containsAllQueryWords("anything", "for the a"), "stop words alone never match")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short\n\ttext", 20))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}
