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


// Package transform turns merged review records into embeddable documents.
package transform

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/tmc/langchaingo/schema"

	"github.com/wothmag07/cssm/core"
)

// Stats reports what a Transform call did.
type Stats struct {
	// Considered is the number of records left after shuffle and limit.
	Considered   int
	Produced     int
	EmptySkipped int
	Shuffled     bool
}

// Shuffler reorders records in place.
type Shuffler func(records []core.MergedRecord)

// Transformer builds documents from merged records.
type Transformer struct {
	limit    int
	shuffle  bool
	shuffler Shuffler
	logger   *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLimit keeps at most n records after shuffling. Zero or less keeps all.
func WithLimit(n int) Option {
	return func(t *Transformer) {
		t.limit = n
	}
}

// WithShuffle enables shuffling of the input before the limit is applied.
func WithShuffle(shuffle bool) Option {
	return func(t *Transformer) {
		t.shuffle = shuffle
	}
}

// WithShuffleSeed makes shuffling reproducible.
func WithShuffleSeed(seed int64) Option {
	return func(t *Transformer) {
		t.shuffler = seededShuffler(seed)
	}
}

// WithShuffler replaces the shuffle implementation.
func WithShuffler(s Shuffler) Option {
	return func(t *Transformer) {
		if s != nil {
			t.shuffler = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		shuffler: seededShuffler(time.Now().UnixNano()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "transformer")
	return t
}

func seededShuffler(seed int64) Shuffler {
	rng := rand.New(rand.NewSource(seed))
	return func(records []core.MergedRecord) {
		rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})
	}
}

// Transform builds one document per record with non-empty content.
// The input slice is never modified.
func (t *Transformer) Transform(records []core.MergedRecord) ([]schema.Document, Stats) {
	var stats Stats

	data := records
	if t.shuffle {
		data, stats.Shuffled = t.shuffled(records)
	}
	if t.limit > 0 && len(data) > t.limit {
		data = data[:t.limit]
	}
	stats.Considered = len(data)

	t.logger.Info("transforming records",
		"records", stats.Considered,
		"limit", t.limit,
		"shuffle", t.shuffle)

	docs := make([]schema.Document, 0, len(data))
	for _, record := range data {
		content := PageContent(record)
		if content == "" {
			stats.EmptySkipped++
			continue
		}
		docs = append(docs, schema.Document{
			PageContent: content,
			Metadata:    Metadata(record),
		})
	}
	stats.Produced = len(docs)

	t.logger.Info("transform complete",
		"considered", stats.Considered,
		"produced", stats.Produced,
		"empty_skipped", stats.EmptySkipped)
	return docs, stats
}

// shuffled returns a shuffled copy. A panicking shuffler leaves the source
// order in place.
func (t *Transformer) shuffled(records []core.MergedRecord) (out []core.MergedRecord, ok bool) {
	out = make([]core.MergedRecord, len(records))
	copy(out, records)

	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("shuffle failed, keeping source order", "err", fmt.Sprint(r))
			copy(out, records)
			ok = false
		}
	}()

	t.shuffler(out)
	return out, true
}

// PageContent is the text that gets embedded: the trimmed title and text
// separated by a blank line, or the text alone when there is no title.
func PageContent(record core.MergedRecord) string {
	title := strings.TrimSpace(record.Title)
	text := strings.TrimSpace(record.Text)
	if title == "" {
		return text
	}
	return strings.TrimSpace(title + "\n\n" + text)
}

// Metadata builds the sidecar stored next to each document. Every key is
// always present: the string fields are plain strings after the merge, and
// a missing or unparseable rating is stored as 0, the value the merged
// JSONL carries for it.
func Metadata(record core.MergedRecord) map[string]any {
	rating, err := record.Rating.Float64()
	if err != nil {
		rating = 0
	}
	return map[string]any{
		core.MetaProductID:       record.ProductID,
		core.MetaProductName:     record.ProductName,
		core.MetaProductRating:   rating,
		core.MetaProductCategory: record.Category,
		core.MetaUserID:          record.UserID,
	}
}
