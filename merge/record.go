package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wothmag07/cssm/core"
)

// BuildRecord projects a review and its metadata into a merged record.
func BuildRecord(review core.RawReview, meta core.RawMetadata) core.MergedRecord {
	productID := review.ASIN
	if productID == "" {
		productID = meta.ProductID()
	}

	return core.MergedRecord{
		ProductID:          productID,
		ProductName:        meta.Title,
		ProductDescription: FlattenDescription(meta.Description),
		UserID:             review.UserID,
		Text:               review.Text,
		Title:              review.Title,
		Rating:             review.Rating,
		AvgRating:          meta.AverageRating,
		RatingCount:        meta.RatingNumber,
		Category:           meta.MainCategory,
		Store:              meta.Store,
		Price:              meta.Price,
		VerifiedPurchase:   review.VerifiedPurchase,
		HelpfulVote:        review.HelpfulVote,
		Timestamp:          review.Timestamp,
	}
}

// FlattenDescription turns a raw metadata description into a single string.
// A list is joined with single spaces after rendering each element; a
// scalar is rendered on its own. Null, empty and zero scalars become "".
// Elements render the way the upstream Python tooling prints them: float
// literals keep their fractional part ("3.0"), booleans are "True" and
// "False", and null is "None". Objects render as compact JSON.
func FlattenDescription(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, part := range list {
			parts[i] = renderValue(part)
		}
		return strings.Join(parts, " ")
	}
	if isZeroValue(v) {
		return ""
	}
	return renderValue(v)
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case json.Number:
		return renderNumber(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

// renderNumber keeps integer literals as written and prints floats in
// shortest round-trip form, always with a fractional part or exponent.
func renderNumber(n json.Number) string {
	lit := n.String()
	if !strings.ContainsAny(lit, ".eE") {
		return lit
	}
	f, err := n.Float64()
	if err != nil {
		return lit
	}

	exp := strconv.FormatFloat(f, 'e', -1, 64)
	if i := strings.IndexByte(exp, 'e'); i >= 0 {
		if e, err := strconv.Atoi(exp[i+1:]); err == nil && (e < -4 || e >= 16) {
			return exp
		}
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func isZeroValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case bool:
		return !x
	case map[string]any:
		return len(x) == 0
	}
	return false
}
