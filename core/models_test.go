package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short content", content: "Great"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer review body that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestRawMetadata_ProductID(t *testing.T) {
	tests := []struct {
		name string
		meta RawMetadata
		want string
	}{
		{name: "parent preferred", meta: RawMetadata{ParentASIN: "P1", ASIN: "A1"}, want: "P1"},
		{name: "asin fallback", meta: RawMetadata{ASIN: "A1"}, want: "A1"},
		{name: "neither", meta: RawMetadata{Title: "orphan"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.meta.ProductID())
		})
	}
}

func TestMergedRecord_MarshalDefaults(t *testing.T) {
	data, err := json.Marshal(MergedRecord{ProductID: "A1"})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"product_id": "A1",
		"product_name": "",
		"product_description": "",
		"user_id": "",
		"text": "",
		"title": "",
		"rating": 0,
		"avg_rating": 0,
		"rating_count": 0,
		"category": "",
		"store": "",
		"price": null,
		"verified_purchase": false,
		"helpful_vote": 0,
		"timestamp": 0
	}`, string(data))
}

func TestRawReview_PreservesNumberLiterals(t *testing.T) {
	var review RawReview
	require.NoError(t, json.Unmarshal([]byte(`{"asin":"A1","rating":5.0,"timestamp":1588687728923}`), &review))

	assert.Equal(t, json.Number("5.0"), review.Rating)
	assert.Equal(t, json.Number("1588687728923"), review.Timestamp)
}
