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
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/wothmag07/cssm"
	"github.com/wothmag07/cssm/config"
	"github.com/wothmag07/cssm/core"
	"github.com/wothmag07/cssm/search"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "searcher",
		Usage:     "Query the review vector store",
		ArgsUsage: "<query words...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Number of hits to return",
				Value: 5,
			},
			&cli.StringFlag{
				Name:  "product",
				Usage: "Only return reviews of this product id",
			},
		},
		Before: setupLogger,
		Action: searchCommand,
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		query = config.DefaultSmokeQuery
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	store, _, err := cssm.Open(c.Context, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	searcher, err := search.NewSearcher(store)
	if err != nil {
		return err
	}

	var filter map[string]any
	if product := c.String("product"); product != "" {
		filter = map[string]any{core.MetaProductID: product}
	}

	results, err := searcher.FindSimilar(c.Context, query, c.Int("k"), filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResults(c.App.Writer, results)
	return nil
}

func printResults(w io.Writer, results []*search.Result) {
	fmt.Fprintf(w, "Found %d hits\n", len(results))
	for i, hit := range results {
		productID, _ := hit.Document.Metadata[core.MetaProductID].(string)
		marker := ""
		if hit.Verbatim {
			marker = " *"
		}
		fmt.Fprintf(w, "%d: '%s' (%s)[%0.3f]%s\n", i, hit.Document.PageContent, productID, hit.Score, marker)
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
