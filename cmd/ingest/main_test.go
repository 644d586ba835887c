package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wothmag07/cssm"
	"github.com/wothmag07/cssm/config"
	"github.com/wothmag07/cssm/ingestion"
)

const mergedLines = `{"product_id":"B1","product_name":"Hunting Binoculars","product_description":"10x42","user_id":"U1","text":"binoculars for hunting","title":"Great","rating":5.0,"avg_rating":4.5,"rating_count":120,"category":"Camera","store":"Acme","price":99.99,"verified_purchase":true,"helpful_vote":2,"timestamp":1588687728923}
{"product_id":"T1","product_name":"Tent","product_description":"","user_id":"U2","text":"leaked in the rain","title":"","rating":2.0,"avg_rating":3.1,"rating_count":7,"category":"Outdoors","store":"Camp","price":null,"verified_purchase":false,"helpful_vote":0,"timestamp":1588687728924}
{"product_id":"E1","product_name":"Empty","product_description":"","user_id":"U3","text":"","title":" ","rating":3.0,"avg_rating":3.0,"rating_count":1,"category":"","store":"","price":null,"verified_purchase":false,"helpful_vote":0,"timestamp":1588687728925}
{"product_id":"S1","product_name":"Stove","product_description":"","user_id":"U4","text":"boils fast","title":"Hot","rating":4.0,"avg_rating":4.2,"rating_count":30,"category":"Outdoors","store":"Camp","price":"$25","verified_purchase":true,"helpful_vote":1,"timestamp":1588687728926}
`

// writeSetup creates a merged dataset and a badger + mock embedder config
// pointing at it, and returns the config path.
func writeSetup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	data := filepath.Join(dir, "merged.jsonl")
	require.NoError(t, os.WriteFile(data, []byte(mergedLines), 0644))

	yaml := fmt.Sprintf(`
data:
  jsonl_path: %s
vector_store:
  provider: badger
badger:
  path: %s
embedding_model:
  provider: mock
  dimension: 8
ingestion:
  batch_size: 2
  backoff_initial_seconds: 0
  backoff_max_seconds: 0
smoke_check:
  enabled: true
  query: binoculars for hunting
  top_k: 2
`, data, filepath.Join(dir, "vectors"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func runApp(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.RunContext(ctx, append([]string{"ingest"}, args...))
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	t.Run("default action ingests and runs the smoke check", func(t *testing.T) {
		cfgPath := writeSetup(t)
		out, _, err := runApp(t, context.Background(), "--config", cfgPath)
		require.NoError(t, err)

		assert.Contains(t, out, "Read 4 records, built 3 documents (1 empty skipped)")
		assert.Contains(t, out, "Inserted 3 documents into badger in 2 batches")
		assert.Contains(t, out, "Smoke check: ok")
	})

	t.Run("run subcommand honors flags", func(t *testing.T) {
		cfgPath := writeSetup(t)
		out, errOut, err := runApp(t, context.Background(), "--config", cfgPath, "run", "--skip-smoke-check", "--progress")
		require.NoError(t, err)

		assert.Contains(t, out, "Smoke check: skipped")
		assert.Contains(t, errOut, "Ingesting")
	})

	t.Run("limit applies before ingestion", func(t *testing.T) {
		cfgPath := writeSetup(t)
		data, err := os.ReadFile(cfgPath)
		require.NoError(t, err)
		patched := bytes.Replace(data, []byte("  batch_size: 2\n"), []byte("  batch_size: 2\n  limit: 2\n"), 1)
		require.NoError(t, os.WriteFile(cfgPath, patched, 0644))

		out, _, err := runApp(t, context.Background(), "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Read 4 records, built 2 documents")
		assert.Contains(t, out, "in 1 batches")
	})

	t.Run("missing dataset fails in read phase", func(t *testing.T) {
		cfgPath := writeSetup(t)
		require.NoError(t, os.Remove(filepath.Join(filepath.Dir(cfgPath), "merged.jsonl")))

		_, _, err := runApp(t, context.Background(), "--config", cfgPath)
		require.Error(t, err)
		assert.Equal(t, cssm.PhaseRead, cssm.ErrPhase(err))
		assert.Equal(t, exitError, exitCode(context.Background(), err))
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		cfgPath := writeSetup(t)
		data, err := os.ReadFile(cfgPath)
		require.NoError(t, err)
		patched := bytes.Replace(data, []byte("provider: badger"), []byte("provider: cassandra"), 1)
		require.NoError(t, os.WriteFile(cfgPath, patched, 0644))

		_, _, err = runApp(t, context.Background(), "--config", cfgPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("explicit config path must exist", func(t *testing.T) {
		_, _, err := runApp(t, context.Background(), "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("interrupted run exits 130", func(t *testing.T) {
		cfgPath := writeSetup(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := runApp(t, ctx, "--config", cfgPath)
		require.Error(t, err)
		assert.Equal(t, exitInterrupted, exitCode(ctx, err))
	})
}

func TestInitConfigCommand(t *testing.T) {
	t.Run("writes defaults that load back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		out, _, err := runApp(t, context.Background(), "init-config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote default configuration to "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "collection_name: amazon_electronics_reviews")
		assert.Contains(t, string(data), "batch_size: 50")
	})

	t.Run("default path is config.yaml", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		_, _, err := runApp(t, context.Background(), "init-config")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "config.yaml"))
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("keep: me\n"), 0644))

		_, _, err := runApp(t, context.Background(), "init-config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "keep: me\n", string(data))

		_, _, err = runApp(t, context.Background(), "init-config", "--force", path)
		require.NoError(t, err)
		data, err = os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "vector_store:")
	})
}

func TestProgressObserver(t *testing.T) {
	var buf bytes.Buffer
	observe := progressObserver(&buf)

	observe(ingestion.BatchProgress{Batch: 1, Batches: 2, Size: 2, Inserted: 2, Total: 3})
	observe(ingestion.BatchProgress{Batch: 2, Batches: 2, Size: 1, Inserted: 3, Total: 3})

	assert.Contains(t, buf.String(), "Ingesting")
	assert.Contains(t, buf.String(), "3/3")
}

func TestSetLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		assert.NoError(t, setLogLevel(level), level)
	}
	err := setLogLevel("trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
