package cssm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/vectorstores"

	"github.com/wothmag07/cssm/core"
	"github.com/wothmag07/cssm/ingestion"
	"github.com/wothmag07/cssm/jsonl"
	"github.com/wothmag07/cssm/merge"
	"github.com/wothmag07/cssm/search"
	"github.com/wothmag07/cssm/transform"
)

// Phase names a stage of a run.
type Phase string

const (
	PhaseRead      Phase = "read"
	PhaseMerge     Phase = "merge"
	PhaseTransform Phase = "transform"
	PhaseIngest    Phase = "ingest"
)

// PhaseError is a fatal failure tagged with the phase it happened in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Err: err}
}

// ErrPhase reports the phase of err, or "" when err carries none.
func ErrPhase(err error) Phase {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}

// MergeFiles builds the metadata index from metadataPaths and merges every
// review file into it. Index loading failures are read-phase errors; the
// rest belong to the merge phase.
func MergeFiles(ctx context.Context, reviewPaths, metadataPaths []string, logger *slog.Logger, opts ...merge.Option) (*merge.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index, err := merge.LoadIndex(ctx, logger, metadataPaths...)
	if err != nil {
		return nil, phaseErr(PhaseRead, err)
	}

	merger, err := merge.NewMerger(index, append([]merge.Option{merge.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, phaseErr(PhaseMerge, err)
	}

	result, err := merger.Merge(ctx, reviewPaths...)
	if err != nil {
		if errors.Is(err, jsonl.ErrRead) {
			return nil, phaseErr(PhaseRead, err)
		}
		return nil, phaseErr(PhaseMerge, err)
	}
	return result, nil
}

// LoadRecords reads merged records from a .json array file or a JSONL file.
func LoadRecords(ctx context.Context, path string, logger *slog.Logger) ([]core.MergedRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var records []core.MergedRecord
	collect := func(_ int, r core.MergedRecord) error {
		records = append(records, r)
		return nil
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := jsonl.ReadArray(ctx, path, collect); err != nil {
			return nil, err
		}
	} else {
		reader, err := jsonl.Open[core.MergedRecord](path, jsonl.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		if err := reader.ForEach(ctx, collect); err != nil {
			return nil, err
		}
		if skipped := reader.Stats().Malformed; skipped > 0 {
			logger.Warn("skipped malformed records", "path", path, "count", skipped)
		}
	}

	logger.Info("loaded merged records", "path", path, "count", len(records))
	return records, nil
}

// Report summarizes a pipeline run.
type Report struct {
	Records   int
	Transform transform.Stats
	Ingest    *ingestion.Result

	SmokeCheckRan    bool
	SmokeCheckPassed bool
}

// Pipeline transforms merged records, ingests the documents and optionally
// runs a smoke check query against the store.
type Pipeline struct {
	store       vectorstores.VectorStore
	transformer *transform.Transformer
	ingestor    *ingestion.Ingestor
	smokeQuery  string
	smokeTopK   int
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	transform  []transform.Option
	ingest     []ingestion.Option
	smokeQuery string
	smokeTopK  int
	logger     *slog.Logger
}

// WithTransformOptions passes options to the document transformer.
func WithTransformOptions(opts ...transform.Option) PipelineOption {
	return func(o *pipelineOptions) {
		o.transform = append(o.transform, opts...)
	}
}

// WithIngestOptions passes options to the batched ingestor.
func WithIngestOptions(opts ...ingestion.Option) PipelineOption {
	return func(o *pipelineOptions) {
		o.ingest = append(o.ingest, opts...)
	}
}

// WithSmokeCheck runs query for the top k documents after ingestion.
// An empty query disables the check.
func WithSmokeCheck(query string, k int) PipelineOption {
	return func(o *pipelineOptions) {
		o.smokeQuery = query
		o.smokeTopK = k
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewPipeline creates a pipeline writing to store.
func NewPipeline(store vectorstores.VectorStore, cfg *ingestion.Config, opts ...PipelineOption) (*Pipeline, error) {
	if store == nil {
		return nil, ingestion.ErrWriterRequired
	}

	o := &pipelineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	transformOpts := append([]transform.Option{transform.WithLogger(o.logger)}, o.transform...)
	ingestOpts := append([]ingestion.Option{ingestion.WithLogger(o.logger)}, o.ingest...)

	ingestor, err := ingestion.NewIngestor(store, cfg, ingestOpts...)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		store:       store,
		transformer: transform.New(transformOpts...),
		ingestor:    ingestor,
		smokeQuery:  o.smokeQuery,
		smokeTopK:   max(o.smokeTopK, 1),
		logger:      o.logger.With("component", "pipeline"),
	}, nil
}

// RunFile loads merged records from path and runs the pipeline on them.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Report, error) {
	p.logger.Info("running read phase", "path", path)
	records, err := LoadRecords(ctx, path, p.logger)
	if err != nil {
		return nil, phaseErr(PhaseRead, err)
	}
	return p.Run(ctx, records)
}

// Run transforms records, ingests the resulting documents and runs the
// smoke check when one is configured.
func (p *Pipeline) Run(ctx context.Context, records []core.MergedRecord) (*Report, error) {
	report := &Report{Records: len(records)}

	p.logger.Info("running transform phase", "records", len(records))
	if err := ctx.Err(); err != nil {
		return nil, phaseErr(PhaseTransform, err)
	}
	docs, stats := p.transformer.Transform(records)
	report.Transform = stats

	p.logger.Info("running ingest phase", "documents", len(docs))
	result, err := p.ingestor.Ingest(ctx, docs)
	if err != nil {
		return nil, phaseErr(PhaseIngest, err)
	}
	report.Ingest = result

	if p.smokeQuery != "" && len(result.IDs) > 0 {
		report.SmokeCheckRan = true
		report.SmokeCheckPassed = search.SmokeCheck(ctx, p.store, p.smokeQuery, p.smokeTopK, p.logger)
	}
	return report, nil
}
