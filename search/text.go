package search

import (
	"strings"
	"unicode"
)

// Words that carry no product signal in review queries.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "me": true, "my": true, "i": true, "can": true,
	"could": true, "what": true, "which": true, "any": true, "some": true,
	"recommend": true, "suggest": true, "please": true,
}

// tokenizeAndFilter lowercases text, splits it on anything that is not a
// letter or digit, and drops stop words.
func tokenizeAndFilter(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	filtered := words[:0]
	for _, word := range words {
		if !stopWords[word] {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

// containsAllQueryWords reports whether every meaningful query word occurs in document.
func containsAllQueryWords(document, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	docWords := make(map[string]struct{})
	for _, word := range tokenizeAndFilter(document) {
		docWords[word] = struct{}{}
	}
	for _, word := range queryWords {
		if _, ok := docWords[word]; !ok {
			return false
		}
	}
	return true
}

// snippet shortens text to at most n runes for log output.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
