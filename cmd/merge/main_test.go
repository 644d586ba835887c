package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/wothmag07/cssm"
)

const (
	reviewLines = `{"asin":"B01","parent_asin":"P1","user_id":"u1","title":"Sharp","text":"Great optics for hunting","rating":5.0,"verified_purchase":true,"helpful_vote":2,"timestamp":1588687728923}
{"asin":"B02","parent_asin":"P9","user_id":"u2","title":"Unknown","text":"No catalog entry","rating":3.0,"verified_purchase":false,"helpful_vote":0,"timestamp":1588687728924}
{"asin":"","parent_asin":"","user_id":"u3","title":"Orphan","text":"No product id","rating":1.0,"verified_purchase":false,"helpful_vote":0,"timestamp":1588687728925}
{"asin":"B03","parent_asin":"P2","user_id":"u4","title":"Fine","text":"Does the job","rating":4.0,"verified_purchase":true,"helpful_vote":1,"timestamp":1588687728926}
`
	metadataLines = `{"parent_asin":"P1","title":"Hunting Binoculars","description":["10x42","Waterproof"],"average_rating":4.5,"rating_number":120,"main_category":"Camera & Photo","store":"Acme","price":99.99}
{"parent_asin":"P2","title":"Trail Camera","description":"Night vision","average_rating":4.1,"rating_number":40,"main_category":"Camera & Photo","store":"Acme","price":null}
`
)

type fixture struct {
	dir      string
	reviews  string
	metadata string
	json     string
	jsonl    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		reviews:  filepath.Join(dir, "reviews.jsonl"),
		metadata: filepath.Join(dir, "meta.jsonl"),
		json:     filepath.Join(dir, "out", "merged.json"),
		jsonl:    filepath.Join(dir, "out", "merged.jsonl"),
	}
	require.NoError(t, os.WriteFile(f.reviews, []byte(reviewLines), 0644))
	require.NoError(t, os.WriteFile(f.metadata, []byte(metadataLines), 0644))
	return f
}

func (f fixture) args(extra ...string) []string {
	args := []string{"merge",
		"--reviews", f.reviews,
		"--metadata", f.metadata,
		"--out_json", f.json,
		"--out_jsonl", f.jsonl,
	}
	return append(args, extra...)
}

func runApp(t *testing.T, ctx context.Context, args []string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(ctx, args)
	return out.String(), err
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func TestMergeCommand(t *testing.T) {
	t.Run("writes both outputs", func(t *testing.T) {
		f := newFixture(t)
		out, err := runApp(t, context.Background(), f.args())
		require.NoError(t, err)

		assert.Contains(t, out, "Merged 2 records (4 reviews read, 2 skipped: 1 without product id, 1 without metadata)")
		assert.Regexp(t, `without metadata\) in [0-9.]+(ns|µs|ms|s|m[0-9.]+s)\n`, out)
		assert.Equal(t, 2, countLines(t, f.jsonl))

		data, err := os.ReadFile(f.json)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "["))
		assert.Contains(t, string(data), `"product_name": "Hunting Binoculars"`)
		assert.Contains(t, string(data), `"product_description": "10x42 Waterproof"`)
	})

	t.Run("empty output path disables it", func(t *testing.T) {
		f := newFixture(t)
		_, err := runApp(t, context.Background(), f.args("--out_json", ""))
		require.NoError(t, err)

		_, statErr := os.Stat(f.json)
		assert.True(t, errors.Is(statErr, os.ErrNotExist))
		assert.Equal(t, 2, countLines(t, f.jsonl))
	})

	t.Run("limit stops early", func(t *testing.T) {
		f := newFixture(t)
		out, err := runApp(t, context.Background(), f.args("--limit", "1"))
		require.NoError(t, err)

		assert.Contains(t, out, "Stopped at limit of 1 records")
		assert.Equal(t, 1, countLines(t, f.jsonl))
	})

	t.Run("globs expand to every shard", func(t *testing.T) {
		f := newFixture(t)
		shard := filepath.Join(f.dir, "reviews-2.jsonl")
		require.NoError(t, os.WriteFile(shard, []byte(reviewLines), 0644))

		args := []string{"merge",
			"--reviews", filepath.Join(f.dir, "reviews*.jsonl"),
			"--metadata", f.metadata,
			"--out_json", "",
			"--out_jsonl", f.jsonl,
		}
		out, err := runApp(t, context.Background(), args)
		require.NoError(t, err)

		assert.Contains(t, out, "Merged 4 records (8 reviews read")
		assert.Equal(t, 4, countLines(t, f.jsonl))
	})

	t.Run("missing metadata fails in read phase", func(t *testing.T) {
		f := newFixture(t)
		args := f.args("--metadata", filepath.Join(f.dir, "absent.jsonl"))
		_, err := runApp(t, context.Background(), args)
		require.Error(t, err)

		assert.Equal(t, cssm.PhaseRead, cssm.ErrPhase(err))
		assert.Contains(t, err.Error(), "read phase failed")
		assert.Equal(t, exitError, exitCode(context.Background(), err))
	})

	t.Run("unmatched glob fails in read phase", func(t *testing.T) {
		f := newFixture(t)
		args := f.args("--reviews", filepath.Join(f.dir, "nothing-*.jsonl"))
		_, err := runApp(t, context.Background(), args)
		require.Error(t, err)
		assert.Equal(t, cssm.PhaseRead, cssm.ErrPhase(err))
	})

	t.Run("negative limit is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := runApp(t, context.Background(), f.args("--limit", "-1"))
		require.Error(t, err)
		assert.Equal(t, cssm.PhaseMerge, cssm.ErrPhase(err))
	})

	t.Run("interrupted run exits 130", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := runApp(t, ctx, f.args())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, exitInterrupted, exitCode(ctx, err))
	})
}

func TestExitCode(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, exitOK, exitCode(context.Background(), nil))
	assert.Equal(t, exitError, exitCode(context.Background(), errors.New("boom")))
	assert.Equal(t, exitInterrupted, exitCode(context.Background(), context.Canceled))
	assert.Equal(t, exitInterrupted, exitCode(cancelled, errors.New("sink closed")))
}

func TestFlagDefaults(t *testing.T) {
	app := newApp()
	defaults := map[string]string{}
	for _, flag := range app.Flags {
		if f, ok := flag.(*cli.StringFlag); ok {
			defaults[f.Name] = f.Value
		}
	}

	assert.Equal(t, "info", defaults["log-level"])
	assert.Equal(t, filepath.Join("data", "merged_electronics_data.json"), defaults["out_json"])
	assert.Equal(t, filepath.Join("data", "merged_electronics_data.jsonl"), defaults["out_jsonl"])
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	for _, level := range []string{"debug", "INFO", "WaRn", "error"} {
		t.Run(level, func(t *testing.T) {
			app := &cli.App{
				Name:   "test",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
				Before: setupLogger,
				Action: func(*cli.Context) error { return nil },
			}
			require.NoError(t, app.Run([]string{"test", "--log-level", level}))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name:   "test",
			Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
			Before: setupLogger,
			Action: func(*cli.Context) error { return nil },
		}
		err := app.Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
