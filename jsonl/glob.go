package jsonl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves an input path that may contain doublestar glob syntax
// (for example "data/reviews/**/*.jsonl") into a sorted list of files.
// A path without glob metacharacters is returned unchanged, so a missing
// plain file is reported later by Open rather than here.
func Expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatches, pattern)
	}

	slices.Sort(matches)
	return matches, nil
}

// ExpandAll expands every pattern and concatenates the results in order.
func ExpandAll(patterns ...string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		expanded, err := Expand(pattern)
		if err != nil {
			return nil, err
		}
		paths = append(paths, expanded...)
	}
	return paths, nil
}
