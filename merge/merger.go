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


package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wothmag07/cssm/core"
	"github.com/wothmag07/cssm/jsonl"
)

// DefaultReportInterval is the number of reviews between progress reports.
const DefaultReportInterval = 10000

// errLimitReached stops the review stream once enough records were merged.
var errLimitReached = errors.New("limit reached")

// Result summarizes a merge run.
// Read always equals Processed + Skipped.
type Result struct {
	// Records holds the merged records when collection is enabled.
	Records []core.MergedRecord

	Read           int
	Processed      int
	Skipped        int
	SkippedNoASIN  int
	SkippedNoMatch int

	// Malformed counts review lines that could not be decoded.
	Malformed int

	LimitReached bool

	// Elapsed is the wall time spent streaming reviews.
	Elapsed time.Duration
}

// Merger joins reviews with an index of product metadata.
type Merger struct {
	index          *MetadataIndex
	jsonlPath      string
	jsonPath       string
	sinks          []jsonl.RecordWriter
	limit          int
	collect        bool
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger) error

// WithJSONLOutput writes merged records to path, one object per line.
// An empty path disables the output.
func WithJSONLOutput(path string) Option {
	return func(m *Merger) error {
		m.jsonlPath = path
		return nil
	}
}

// WithJSONOutput writes merged records to path as a pretty-printed JSON array.
// An empty path disables the output.
func WithJSONOutput(path string) Option {
	return func(m *Merger) error {
		m.jsonPath = path
		return nil
	}
}

// WithSink adds a caller-provided sink. The merger takes ownership of the
// sink and closes it when Merge returns, so a merger configured with sinks
// can only run once.
func WithSink(sink jsonl.RecordWriter) Option {
	return func(m *Merger) error {
		if sink == nil {
			return errors.New("sink cannot be nil")
		}
		m.sinks = append(m.sinks, sink)
		return nil
	}
}

// WithLimit stops merging after n records. Zero means no limit.
func WithLimit(n int) Option {
	return func(m *Merger) error {
		if n < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
		}
		m.limit = n
		return nil
	}
}

// WithCollect keeps merged records in Result.Records.
func WithCollect(collect bool) Option {
	return func(m *Merger) error {
		m.collect = collect
		return nil
	}
}

// WithReportInterval sets how many reviews are read between progress reports.
func WithReportInterval(n int) Option {
	return func(m *Merger) error {
		m.reportInterval = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// NewMerger creates a merger over index.
func NewMerger(index *MetadataIndex, opts ...Option) (*Merger, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}

	m := &Merger{
		index:          index,
		reportInterval: DefaultReportInterval,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "merger")
	return m, nil
}

// reviewSource yields a reader and reports whether the merger owns it.
type reviewSource func() (*jsonl.Reader[core.RawReview], bool, error)

// Merge streams every review file in order and merges it against the index.
func (m *Merger) Merge(ctx context.Context, reviewPaths ...string) (*Result, error) {
	if len(reviewPaths) == 0 {
		return nil, ErrNoReviewSources
	}

	sources := make([]reviewSource, len(reviewPaths))
	for i, path := range reviewPaths {
		sources[i] = func() (*jsonl.Reader[core.RawReview], bool, error) {
			r, err := jsonl.Open[core.RawReview](path, jsonl.WithLogger(m.logger))
			if err != nil {
				return nil, false, fmt.Errorf("failed to open reviews: %w", err)
			}
			return r, true, nil
		}
	}
	return m.run(ctx, sources)
}

// MergeReader merges reviews from an already opened reader. The reader is
// consumed but not closed.
func (m *Merger) MergeReader(ctx context.Context, r *jsonl.Reader[core.RawReview]) (*Result, error) {
	if r == nil {
		return nil, ErrNoReviewSources
	}
	return m.run(ctx, []reviewSource{func() (*jsonl.Reader[core.RawReview], bool, error) {
		return r, false, nil
	}})
}

func (m *Merger) run(ctx context.Context, sources []reviewSource) (result *Result, err error) {
	sinks, err := m.openSinks()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := closeSinks(sinks); closeErr != nil && err == nil {
			result = nil
			err = closeErr
		}
	}()

	tracker := NewProgressTracker(m.logger, m.reportInterval)
	tracker.Start()

	res := &Result{}
	for _, open := range sources {
		r, owned, err := open()
		if err != nil {
			return nil, err
		}

		err = r.ForEach(ctx, func(_ int, review core.RawReview) error {
			err := m.mergeOne(review, sinks, res)
			tracker.Update(res.Read, res.Processed, res.Skipped)
			return err
		})
		res.Malformed += r.Stats().Malformed
		if owned {
			r.Close()
		}

		if errors.Is(err, errLimitReached) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	tracker.Finish(res.Read, res.Processed, res.Skipped)
	res.Elapsed = tracker.Elapsed()
	m.logger.Info("merge summary",
		"read", res.Read,
		"merged", res.Processed,
		"skipped_no_asin", res.SkippedNoASIN,
		"skipped_no_match", res.SkippedNoMatch,
		"malformed", res.Malformed,
		"limit_reached", res.LimitReached)
	return res, nil
}

func (m *Merger) mergeOne(review core.RawReview, sinks []jsonl.RecordWriter, res *Result) error {
	res.Read++

	if review.ASIN == "" {
		res.Skipped++
		res.SkippedNoASIN++
		return nil
	}

	meta, ok := m.index.Get(review.ASIN)
	if !ok {
		res.Skipped++
		res.SkippedNoMatch++
		return nil
	}

	record := BuildRecord(review, meta)
	for _, sink := range sinks {
		if err := sink.Write(record); err != nil {
			return fmt.Errorf("%w: %w", ErrSinkWrite, err)
		}
	}
	if m.collect {
		res.Records = append(res.Records, record)
	}
	res.Processed++

	if m.limit > 0 && res.Processed >= m.limit {
		res.LimitReached = true
		m.logger.Info("sample limit reached", "limit", m.limit)
		return errLimitReached
	}
	return nil
}

// openSinks opens the file outputs and appends caller sinks. On failure
// everything already opened is closed, caller sinks included.
func (m *Merger) openSinks() ([]jsonl.RecordWriter, error) {
	var sinks []jsonl.RecordWriter

	if m.jsonlPath != "" {
		w, err := jsonl.CreateLineWriter(m.jsonlPath)
		if err != nil {
			closeSinks(m.sinks)
			return nil, fmt.Errorf("%w: %w", ErrSinkWrite, err)
		}
		sinks = append(sinks, w)
	}

	if m.jsonPath != "" {
		w, err := jsonl.CreateArrayWriter(m.jsonPath)
		if err != nil {
			closeSinks(sinks)
			closeSinks(m.sinks)
			return nil, fmt.Errorf("%w: %w", ErrSinkWrite, err)
		}
		sinks = append(sinks, w)
	}

	return append(sinks, m.sinks...), nil
}

func closeSinks(sinks []jsonl.RecordWriter) error {
	var errs []error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}
	return nil
}
