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


package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/wothmag07/cssm"
	"github.com/wothmag07/cssm/jsonl"
	"github.com/wothmag07/cssm/merge"
)

// Process exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	code := exitCode(ctx, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
	}
	stop()
	os.Exit(code)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "merge",
		Usage: "Join product reviews with their catalog metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringSliceFlag{
				Name:  "reviews",
				Usage: "Review JSONL file or glob; repeatable",
				Value: cli.NewStringSlice(filepath.Join("data", "Electronics.jsonl")),
			},
			&cli.StringSliceFlag{
				Name:  "metadata",
				Usage: "Metadata JSONL file or glob; repeatable",
				Value: cli.NewStringSlice(filepath.Join("data", "meta_Electronics.jsonl")),
			},
			&cli.StringFlag{
				Name:  "out_json",
				Usage: "Output JSON array file (empty disables)",
				Value: filepath.Join("data", "merged_electronics_data.json"),
			},
			&cli.StringFlag{
				Name:  "out_jsonl",
				Usage: "Output JSONL file (empty disables)",
				Value: filepath.Join("data", "merged_electronics_data.jsonl"),
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Stop after this many merged records (0 merges everything)",
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N reviews",
				Value: merge.DefaultReportInterval,
			},
		},
		Before:          setupLogger,
		Action:          mergeCommand,
		HideHelpCommand: true,
	}
}

func mergeCommand(c *cli.Context) error {
	reviews, err := jsonl.ExpandAll(c.StringSlice("reviews")...)
	if err != nil {
		return &cssm.PhaseError{Phase: cssm.PhaseRead, Err: fmt.Errorf("reviews: %w", err)}
	}
	metadata, err := jsonl.ExpandAll(c.StringSlice("metadata")...)
	if err != nil {
		return &cssm.PhaseError{Phase: cssm.PhaseRead, Err: fmt.Errorf("metadata: %w", err)}
	}

	logger := slog.Default()
	logger.Info("starting merge",
		"reviews", len(reviews),
		"metadata", len(metadata),
		"out_json", c.String("out_json"),
		"out_jsonl", c.String("out_jsonl"),
		"limit", c.Int("limit"))

	result, err := cssm.MergeFiles(c.Context, reviews, metadata, logger,
		merge.WithJSONOutput(c.String("out_json")),
		merge.WithJSONLOutput(c.String("out_jsonl")),
		merge.WithLimit(c.Int("limit")),
		merge.WithReportInterval(c.Int("report-interval")),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Merged %d records (%d reviews read, %d skipped: %d without product id, %d without metadata) in %s\n",
		result.Processed, result.Read, result.Skipped, result.SkippedNoASIN, result.SkippedNoMatch,
		result.Elapsed.Round(time.Millisecond))
	if result.Malformed > 0 {
		fmt.Fprintf(c.App.Writer, "Skipped %d malformed review lines\n", result.Malformed)
	}
	if result.LimitReached {
		fmt.Fprintf(c.App.Writer, "Stopped at limit of %d records\n", c.Int("limit"))
	}
	return nil
}

// exitCode maps the outcome of a run to the process exit status.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return exitInterrupted
	default:
		return exitError
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	return nil
}
