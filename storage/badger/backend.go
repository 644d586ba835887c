package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/wothmag07/cssm/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLog forwards badger's internal logging to slog. Badger reports
// routine compaction and value log activity at info level, so that is
// demoted to debug to keep ingestion logs readable.
type badgerLog struct {
	logger *slog.Logger
}

var _ badger.Logger = badgerLog{}

func (l badgerLog) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLog) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLog) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLog) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenBackend opens the vector database in directory dir, creating it when
// missing. With inMemory set nothing touches disk and dir is ignored.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	logger := slog.Default().With("component", "badger-backend")

	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}
	// Vectors are incompressible floats; compression only costs CPU.
	opts = opts.WithCompression(options.None).WithLogger(badgerLog{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("vector database directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Close closes the BadgerDB database. Closing twice is a no-op.
func (b *Backend) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// PutDocuments stores docs in collection, replacing documents with the same
// id. Writes go through a write batch, so a large ingestion batch never
// exceeds badger's transaction size limit.
func (b *Backend) PutDocuments(collection string, docs []*storage.StoredDocument) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, doc := range docs {
		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return storage.Permanent(err)
		}
		if err := wb.Set(makeDocumentKey(collection, doc.ID), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// CountDocuments returns the number of documents stored in collection.
func (b *Backend) CountDocuments(ctx context.Context, collection string) (int, error) {
	count := 0
	err := b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// FindSimilar scans every document of collection and returns those whose
// cosine similarity to vector is at least minSimilarity, best first, at most
// limit results. Stored vectors are unit length so the dot product is the
// cosine similarity; vector must be normalized by the caller.
func (b *Backend) FindSimilar(ctx context.Context, collection string, vector []float32, minSimilarity float32, limit int, filter map[string]any) ([]*SearchResult, error) {
	var results []*SearchResult

	err := b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *storage.StoredDocument
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip documents without embeddings
			if len(doc.Vector) == 0 || !matchesFilter(doc.Metadata, filter) {
				continue
			}

			similarity := dotProduct(vector, doc.Vector)
			if similarity >= minSimilarity {
				results = append(results, &SearchResult{
					Document: doc,
					Score:    similarity,
				})
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// SearchResult is a stored document with its similarity to the query.
type SearchResult struct {
	Document *storage.StoredDocument
	Score    float32
}

// matchesFilter reports whether every filter key is present in meta with an equal value.
func matchesFilter(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
