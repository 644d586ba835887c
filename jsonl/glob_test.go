package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_PlainPath(t *testing.T) {
	paths, err := Expand("data/does-not-exist.jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/does-not-exist.jsonl"}, paths)
}

func TestExpand_Glob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jsonl", "a.jsonl", "nested/c.jsonl", "skip.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
	}

	paths, err := Expand(filepath.Join(dir, "**", "*.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jsonl"),
		filepath.Join(dir, "b.jsonl"),
		filepath.Join(dir, "nested", "c.jsonl"),
	}, paths)
}

func TestExpand_NoMatches(t *testing.T) {
	_, err := Expand(filepath.Join(t.TempDir(), "*.jsonl"))
	assert.ErrorIs(t, err, ErrNoMatches)
}

func TestExpandAll(t *testing.T) {
	paths, err := ExpandAll("a.jsonl", "b.jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jsonl", "b.jsonl"}, paths)
}
