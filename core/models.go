package core

import (
	"encoding/binary"
	"encoding/json"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored documents.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RawReview is one line of the review stream.
// Numeric fields keep the literal from the source so merged output
// reproduces the input numbers exactly.
type RawReview struct {
	ASIN             string      `json:"asin"`
	ParentASIN       string      `json:"parent_asin"`
	UserID           string      `json:"user_id"`
	Title            string      `json:"title"`
	Text             string      `json:"text"`
	Rating           json.Number `json:"rating"`
	VerifiedPurchase bool        `json:"verified_purchase"`
	HelpfulVote      json.Number `json:"helpful_vote"`
	Timestamp        json.Number `json:"timestamp"`
}

// RawMetadata is one product's catalog entry from the metadata stream.
type RawMetadata struct {
	ParentASIN    string          `json:"parent_asin"`
	ASIN          string          `json:"asin"`
	Title         string          `json:"title"`
	Description   json.RawMessage `json:"description"` // list of fragments or a scalar
	AverageRating json.Number     `json:"average_rating"`
	RatingNumber  json.Number     `json:"rating_number"`
	MainCategory  string          `json:"main_category"`
	Store         string          `json:"store"`
	Price         any             `json:"price"` // number, string or null
}

// ProductID returns the join key for the entry: parent_asin when present,
// otherwise asin. An empty result means the entry can never be joined.
func (m *RawMetadata) ProductID() string {
	if m.ParentASIN != "" {
		return m.ParentASIN
	}
	return m.ASIN
}

// MergedRecord is a review joined with its product metadata.
// Field order is the serialized order.
type MergedRecord struct {
	ProductID          string      `json:"product_id"`
	ProductName        string      `json:"product_name"`
	ProductDescription string      `json:"product_description"`
	UserID             string      `json:"user_id"`
	Text               string      `json:"text"`
	Title              string      `json:"title"`
	Rating             json.Number `json:"rating"`
	AvgRating          json.Number `json:"avg_rating"`
	RatingCount        json.Number `json:"rating_count"`
	Category           string      `json:"category"`
	Store              string      `json:"store"`
	Price              any         `json:"price"`
	VerifiedPurchase   bool        `json:"verified_purchase"`
	HelpfulVote        json.Number `json:"helpful_vote"`
	Timestamp          json.Number `json:"timestamp"`
}

// Metadata sidecar keys attached to every embeddable document.
const (
	MetaProductID       = "product_id"
	MetaProductName     = "product_name"
	MetaProductRating   = "product_rating"
	MetaProductCategory = "product_category"
	MetaUserID          = "user_id"
)
