package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wothmag07/cssm/core"
	"github.com/wothmag07/cssm/jsonl"
	"github.com/wothmag07/cssm/merge"
)

func record(title, text string) core.MergedRecord {
	return core.MergedRecord{ProductID: "A1", Title: title, Text: text}
}

func TestPageContent(t *testing.T) {
	tests := []struct {
		name  string
		title string
		text  string
		want  string
	}{
		{"title and text", "Nice", "Great product", "Nice\n\nGreat product"},
		{"text only", "", "  Great product ", "Great product"},
		{"title only", " Nice ", "", "Nice"},
		{"whitespace title", "   ", "Body", "Body"},
		{"both empty", " ", "\n\t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageContent(record(tt.title, tt.text)))
		})
	}
}

func TestMetadata(t *testing.T) {
	meta := Metadata(core.MergedRecord{
		ProductID:   "A1",
		ProductName: "Widget",
		Rating:      json.Number("4"),
		Category:    "Tools",
		UserID:      "U1",
		Store:       "not part of the sidecar",
	})

	assert.Equal(t, map[string]any{
		core.MetaProductID:       "A1",
		core.MetaProductName:     "Widget",
		core.MetaProductRating:   4.0,
		core.MetaProductCategory: "Tools",
		core.MetaUserID:          "U1",
	}, meta)
}

func TestMetadata_KeepsEmptyValues(t *testing.T) {
	meta := Metadata(core.MergedRecord{ProductID: "A1"})
	assert.Equal(t, map[string]any{
		core.MetaProductID:       "A1",
		core.MetaProductName:     "",
		core.MetaProductRating:   0.0,
		core.MetaProductCategory: "",
		core.MetaUserID:          "",
	}, meta)

	meta = Metadata(core.MergedRecord{ProductID: "A1", Rating: json.Number("n/a")})
	assert.Equal(t, 0.0, meta[core.MetaProductRating])
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestMetadata_SameAfterJSONLRoundTrip(t *testing.T) {
	records := []core.MergedRecord{
		merge.BuildRecord(core.RawReview{ASIN: "A1", Text: "Great"}, core.RawMetadata{ASIN: "A1"}),
		merge.BuildRecord(
			core.RawReview{ASIN: "B1", UserID: "U1", Title: "Nice", Text: "Sharp", Rating: "4.5"},
			core.RawMetadata{ParentASIN: "B1", Title: "Binoculars", MainCategory: "Camera"},
		),
	}

	var buf bytes.Buffer
	w := jsonl.NewLineWriter(nopCloser{&buf})
	for _, rec := range records {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())

	var decoded []core.MergedRecord
	err := jsonl.NewReader[core.MergedRecord](&buf, "merged.jsonl").ForEach(context.Background(), func(_ int, rec core.MergedRecord) error {
		decoded = append(decoded, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, decoded, len(records))

	for i := range records {
		assert.Equal(t, Metadata(records[i]), Metadata(decoded[i]), records[i].ProductID)
	}
	assert.Equal(t, 0.0, Metadata(records[0])[core.MetaProductRating])
	assert.Equal(t, "", Metadata(records[0])[core.MetaProductName])
}

func TestTransform_SkipsEmptyContent(t *testing.T) {
	records := []core.MergedRecord{
		record("Title", "Text"),
		record("", "   "),
		record("", "Only text"),
	}

	docs, stats := New().Transform(records)

	require.Len(t, docs, 2)
	assert.Equal(t, "Title\n\nText", docs[0].PageContent)
	assert.Equal(t, "Only text", docs[1].PageContent)
	assert.Equal(t, Stats{Considered: 3, Produced: 2, EmptySkipped: 1}, stats)

	for _, doc := range docs {
		assert.NoError(t, core.ValidateDocument(doc))
	}
}

func TestTransform_Limit(t *testing.T) {
	var records []core.MergedRecord
	for i := range 5 {
		records = append(records, record("", fmt.Sprintf("review %d", i)))
	}

	docs, stats := New(WithLimit(2)).Transform(records)
	require.Len(t, docs, 2)
	assert.Equal(t, "review 0", docs[0].PageContent)
	assert.Equal(t, "review 1", docs[1].PageContent)
	assert.Equal(t, 2, stats.Considered)

	docs, _ = New(WithLimit(0)).Transform(records)
	assert.Len(t, docs, 5, "zero disables the limit")
}

func TestTransform_ShuffleBeforeLimit(t *testing.T) {
	records := []core.MergedRecord{record("", "a"), record("", "b"), record("", "c")}
	reverse := func(rs []core.MergedRecord) {
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
	}

	docs, stats := New(WithShuffle(true), WithShuffler(reverse), WithLimit(2)).Transform(records)

	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0].PageContent)
	assert.Equal(t, "b", docs[1].PageContent)
	assert.True(t, stats.Shuffled)
	assert.Equal(t, "a", records[0].Text, "input is not reordered")
}

func TestTransform_ShuffleSeedIsReproducible(t *testing.T) {
	var records []core.MergedRecord
	for i := range 50 {
		records = append(records, record("", fmt.Sprintf("review %d", i)))
	}

	first, _ := New(WithShuffle(true), WithShuffleSeed(42)).Transform(records)
	second, _ := New(WithShuffle(true), WithShuffleSeed(42)).Transform(records)
	assert.Equal(t, first, second)
}

func TestTransform_ShufflePanicFallsBack(t *testing.T) {
	records := []core.MergedRecord{record("", "a"), record("", "b"), record("", "c")}
	partial := func(rs []core.MergedRecord) {
		rs[0], rs[2] = rs[2], rs[0]
		panic("boom")
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	docs, stats := New(WithShuffle(true), WithShuffler(partial), WithLogger(logger)).Transform(records)

	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].PageContent)
	assert.Equal(t, "c", docs[2].PageContent)
	assert.False(t, stats.Shuffled)
	assert.True(t, strings.Contains(logs.String(), "shuffle failed"))
}

func TestTransform_Empty(t *testing.T) {
	docs, stats := New().Transform(nil)
	assert.Empty(t, docs)
	assert.Equal(t, Stats{}, stats)
}
