package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"
)

const readBufferSize = 1 << 20

var replacementChar = []byte("\uFFFD")

// Stats counts what a Reader saw while iterating.
type Stats struct {
	Lines     int // physical lines, including blank ones
	Decoded   int
	Blank     int
	Malformed int
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger for malformed-line warnings.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Reader lazily decodes a line-delimited JSON source into values of type T.
// It is single pass: once ForEach has run, the Reader cannot be restarted.
type Reader[T any] struct {
	r        *bufio.Reader
	closer   io.Closer
	name     string
	logger   *slog.Logger
	consumed bool
	stats    Stats
}

// Open opens the file at path for reading.
// A missing or unreadable file is the only fatal condition of a read.
func Open[T any](path string, opts ...Option) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	r := NewReader[T](f, filepath.Base(path), opts...)
	r.closer = f
	return r, nil
}

// NewReader wraps an io.Reader. name identifies the source in log output.
// The caller keeps ownership of src.
func NewReader[T any](src io.Reader, name string, opts ...Option) *Reader[T] {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return &Reader[T]{
		r:      bufio.NewReaderSize(src, readBufferSize),
		name:   name,
		logger: o.logger,
	}
}

// Name returns the source name used in log output.
func (r *Reader[T]) Name() string {
	return r.name
}

// Stats returns the counters accumulated so far.
func (r *Reader[T]) Stats() Stats {
	return r.stats
}

// Close releases the underlying file when the Reader was created by Open.
func (r *Reader[T]) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// ForEach decodes every line and calls fn with its 1-based line number.
// Iteration stops on the first error from fn, on context cancellation,
// or when the source is exhausted.
func (r *Reader[T]) ForEach(ctx context.Context, fn func(line int, v T) error) error {
	if r.consumed {
		return ErrConsumed
	}
	r.consumed = true

	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, readErr := r.r.ReadBytes('\n')
		if len(raw) > 0 {
			lineNo++
			if err := r.decodeLine(lineNo, raw, fn); err != nil {
				return err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %s: %w", ErrRead, r.name, readErr)
		}
	}
}

func (r *Reader[T]) decodeLine(lineNo int, raw []byte, fn func(int, T) error) error {
	r.stats.Lines++

	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		r.stats.Blank++
		return nil
	}
	if !utf8.Valid(line) {
		line = bytes.ToValidUTF8(line, replacementChar)
	}

	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		r.stats.Malformed++
		r.logger.Warn("skipping malformed JSON line", "line", lineNo, "source", r.name, "err", err)
		return nil
	}

	r.stats.Decoded++
	return fn(lineNo, v)
}

// ReadArray streams the elements of a JSON array file, calling fn for each.
// Unlike line-delimited input, a malformed element cannot be skipped and
// aborts the read.
func ReadArray[T any](ctx context.Context, path string, fn func(index int, v T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReaderSize(f, readBufferSize))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("%w: %s", ErrNotArray, path)
	}

	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%w: %s: element %d: %w", ErrRead, path, i, err)
		}
		if err := fn(i, v); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	return nil
}
