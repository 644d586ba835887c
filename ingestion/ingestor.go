package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"golang.org/x/time/rate"

	"github.com/wothmag07/cssm/core"
)

// DocumentWriter is the write half of a vector store.
type DocumentWriter interface {
	AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error)
}

// BatchProgress is reported after every successful batch.
type BatchProgress struct {
	Batch    int
	Batches  int
	Size     int
	Inserted int
	Total    int
}

// Result is the outcome of a successful ingestion run.
type Result struct {
	// IDs holds the ids of every inserted document, in input order.
	IDs []string
	// Batches is the number of batches written.
	Batches int
	// Store is the writer the documents went to.
	Store DocumentWriter
}

// Ingestor writes documents to a DocumentWriter in batches.
type Ingestor struct {
	writer   DocumentWriter
	config   *Config
	sleep    Sleeper
	limiter  *rate.Limiter
	observer func(BatchProgress)
	logger   *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor) error

// WithSleeper replaces the backoff wait. Tests use it to observe delays.
func WithSleeper(s Sleeper) Option {
	return func(in *Ingestor) error {
		if s == nil {
			return fmt.Errorf("%w: sleeper cannot be nil", ErrInvalidConfig)
		}
		in.sleep = s
		return nil
	}
}

// WithRateLimiter throttles write attempts. The limiter is consulted before
// every attempt, retries included.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(in *Ingestor) error {
		in.limiter = l
		return nil
	}
}

// WithBatchObserver registers fn to be called after every successful batch.
func WithBatchObserver(fn func(BatchProgress)) Option {
	return func(in *Ingestor) error {
		in.observer = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingestor) error {
		if logger == nil {
			logger = slog.Default()
		}
		in.logger = logger
		return nil
	}
}

// NewIngestor creates an ingestor. A nil config uses DefaultConfig.
func NewIngestor(writer DocumentWriter, config *Config, opts ...Option) (*Ingestor, error) {
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	in := &Ingestor{
		writer: writer,
		config: config,
		sleep:  SleepContext,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(in); err != nil {
			return nil, err
		}
	}
	in.logger = in.logger.With("component", "ingestor")
	return in, nil
}

// Ingest writes docs batch by batch and returns every inserted id.
// The first batch that fails aborts the run with a *BatchError; no partial
// Result is returned.
func (in *Ingestor) Ingest(ctx context.Context, docs []schema.Document) (*Result, error) {
	for i, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, Permanent(err))
		}
	}

	batches := Partition(docs, in.config.BatchSize)
	total := len(docs)
	in.logger.Info("starting ingestion",
		"total_docs", total,
		"batch_size", in.config.BatchSize,
		"batches", len(batches),
		"max_retries", in.config.MaxRetries)

	ids := make([]string, 0, total)
	for i, batch := range batches {
		batchNo := i + 1
		out := in.writeBatch(ctx, batchNo, batch)
		if out.kind != nil {
			return nil, &BatchError{
				Batch:    batchNo,
				Attempts: out.attempts,
				Inserted: ids,
				Kind:     out.kind,
				Err:      out.err,
			}
		}

		ids = append(ids, out.ids...)
		in.logger.Info("inserted batch",
			"batch", batchNo,
			"size", len(batch),
			"cumulative", len(ids),
			"total", total)

		if in.observer != nil {
			in.observer(BatchProgress{
				Batch:    batchNo,
				Batches:  len(batches),
				Size:     len(batch),
				Inserted: len(ids),
				Total:    total,
			})
		}
	}

	in.logger.Info("ingestion complete", "ids", len(ids), "batches", len(batches))
	return &Result{IDs: ids, Batches: len(batches), Store: in.writer}, nil
}
