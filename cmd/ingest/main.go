package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/wothmag07/cssm"
	"github.com/wothmag07/cssm/config"
	"github.com/wothmag07/cssm/ingestion"
)

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
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
	}
	stop()
	os.Exit(code)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ingest",
		Usage: "Embed merged product reviews into the configured vector store",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default: ./config.yaml or ./config/config.yaml when present)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides logging.level",
				Value:   "info",
			},
		}, runFlags()...),
		Before: setupLogger,
		Action: runCommand,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Transform the merged dataset, ingest it and run the smoke check",
				Flags:  runFlags(),
				Action: runCommand,
			},
			{
				Name:      "init-config",
				Usage:     "Write the default configuration to a YAML file",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: initConfigCommand,
			},
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show a progress bar while batches are written",
		},
		&cli.BoolFlag{
			Name:  "skip-smoke-check",
			Usage: "Do not run the similarity query after ingestion",
		},
	}
}

func runCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if !c.IsSet("log-level") {
		if err := setLogLevel(cfg.Logging.Level); err != nil {
			return err
		}
	}
	logger := slog.Default()

	store, _, err := cssm.Open(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close vector store", "err", err)
		}
	}()

	var ingestOpts []ingestion.Option
	if rps := cfg.Ingestion.RequestsPerSecond; rps > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithRateLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	if c.Bool("progress") {
		ingestOpts = append(ingestOpts, ingestion.WithBatchObserver(progressObserver(c.App.ErrWriter)))
	}

	pipelineOpts := []cssm.PipelineOption{
		cssm.WithLogger(logger),
		cssm.WithTransformOptions(cfg.TransformOptions()...),
		cssm.WithIngestOptions(ingestOpts...),
	}
	if cfg.SmokeCheck.Enabled && !c.Bool("skip-smoke-check") {
		pipelineOpts = append(pipelineOpts, cssm.WithSmokeCheck(cfg.SmokeCheck.Query, cfg.SmokeCheck.TopK))
	}

	pipeline, err := cssm.NewPipeline(store, cfg.IngestionConfig(), pipelineOpts...)
	if err != nil {
		return err
	}

	report, err := pipeline.RunFile(c.Context, cfg.Data.JSONLPath)
	if err != nil {
		return err
	}

	printReport(c.App.Writer, cfg, report)
	return nil
}

func printReport(w io.Writer, cfg *config.Config, report *cssm.Report) {
	fmt.Fprintf(w, "Read %d records, built %d documents (%d empty skipped)\n",
		report.Records, report.Transform.Produced, report.Transform.EmptySkipped)
	fmt.Fprintf(w, "Inserted %d documents into %s in %d batches\n",
		len(report.Ingest.IDs), cfg.VectorStore.Provider, report.Ingest.Batches)
	switch {
	case !report.SmokeCheckRan:
		fmt.Fprintln(w, "Smoke check: skipped")
	case report.SmokeCheckPassed:
		fmt.Fprintln(w, "Smoke check: ok")
	default:
		fmt.Fprintln(w, "Smoke check: failed (see log)")
	}
}

// progressObserver draws a bar sized on the first batch report.
// The ingestor reports batches sequentially, so no locking is needed.
func progressObserver(w io.Writer) func(ingestion.BatchProgress) {
	var bar *progressbar.ProgressBar
	return func(p ingestion.BatchProgress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Ingesting"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		_ = bar.Set(p.Inserted)
	}
}

func initConfigCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = "config.yaml"
	}

	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote default configuration to %s\n", path)
	return nil
}

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
	return setLogLevel(c.String("log-level"))
}

func setLogLevel(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

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
