package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wothmag07/cssm/core"
	"github.com/wothmag07/cssm/jsonl"
)

// MetadataIndex maps product identifiers to their catalog entry.
// It is populated once and treated as read-only afterwards.
type MetadataIndex struct {
	entries map[string]core.RawMetadata
	dropped int
}

// NewMetadataIndex returns an empty index.
func NewMetadataIndex() *MetadataIndex {
	return &MetadataIndex{entries: make(map[string]core.RawMetadata)}
}

// Add stores meta under its product identifier. A later entry with the same
// identifier replaces the earlier one. Entries with neither parent_asin nor
// asin are dropped and Add reports false.
func (ix *MetadataIndex) Add(meta core.RawMetadata) bool {
	id := meta.ProductID()
	if id == "" {
		ix.dropped++
		return false
	}
	ix.entries[id] = meta
	return true
}

// Get returns the entry for id.
func (ix *MetadataIndex) Get(id string) (core.RawMetadata, bool) {
	meta, ok := ix.entries[id]
	return meta, ok
}

// Size returns the number of distinct identifiers.
func (ix *MetadataIndex) Size() int {
	return len(ix.entries)
}

// BuildIndex consumes every reader in order into a new index.
func BuildIndex(ctx context.Context, readers ...*jsonl.Reader[core.RawMetadata]) (*MetadataIndex, error) {
	ix := NewMetadataIndex()
	for _, r := range readers {
		err := r.ForEach(ctx, func(_ int, meta core.RawMetadata) error {
			ix.Add(meta)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata from %s: %w", r.Name(), err)
		}
	}
	return ix, nil
}

// LoadIndex opens each metadata file and builds an index from all of them.
func LoadIndex(ctx context.Context, logger *slog.Logger, paths ...string) (*MetadataIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ix := NewMetadataIndex()
	for _, path := range paths {
		r, err := jsonl.Open[core.RawMetadata](path, jsonl.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata: %w", err)
		}
		err = r.ForEach(ctx, func(_ int, meta core.RawMetadata) error {
			ix.Add(meta)
			return nil
		})
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata from %s: %w", path, err)
		}
	}

	logger.Info("loaded metadata", "products", ix.Size(), "files", len(paths), "dropped", ix.dropped)
	return ix, nil
}
