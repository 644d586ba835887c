package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// RecordWriter is a sink that receives records one at a time.
type RecordWriter interface {
	Write(v any) error
	io.Closer
}

// createFile creates path, making parent directories as needed.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return f, nil
}

// LineWriter writes one JSON object per line.
type LineWriter struct {
	dst    io.WriteCloser
	buf    *bufio.Writer
	enc    *json.Encoder
	count  int
	closed bool
}

var _ RecordWriter = (*LineWriter)(nil)

// CreateLineWriter creates (or truncates) the file at path.
func CreateLineWriter(path string) (*LineWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return NewLineWriter(f), nil
}

// NewLineWriter wraps dst. Close closes dst.
func NewLineWriter(dst io.WriteCloser) *LineWriter {
	buf := bufio.NewWriter(dst)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &LineWriter{dst: dst, buf: buf, enc: enc}
}

// Write appends v as a single line.
func (w *LineWriter) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *LineWriter) Count() int {
	return w.count
}

// Close flushes buffered output and closes the destination.
// The destination is closed even when the flush fails.
func (w *LineWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	flushErr := w.buf.Flush()
	closeErr := w.dst.Close()
	if flushErr != nil {
		return fmt.Errorf("%w: %w", ErrWrite, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %w", ErrWrite, closeErr)
	}
	return nil
}

// ArrayWriter streams records into a pretty-printed JSON array with a
// two-space indent. An array with no records is written as [].
type ArrayWriter struct {
	dst     io.WriteCloser
	buf     *bufio.Writer
	scratch bytes.Buffer
	enc     *json.Encoder
	count   int
	closed  bool
}

var _ RecordWriter = (*ArrayWriter)(nil)

// CreateArrayWriter creates (or truncates) the file at path.
func CreateArrayWriter(path string) (*ArrayWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return NewArrayWriter(f), nil
}

// NewArrayWriter wraps dst. Close closes dst.
func NewArrayWriter(dst io.WriteCloser) *ArrayWriter {
	w := &ArrayWriter{dst: dst, buf: bufio.NewWriter(dst)}
	w.enc = json.NewEncoder(&w.scratch)
	w.enc.SetEscapeHTML(false)
	w.enc.SetIndent("  ", "  ")
	return w
}

// Write appends v as the next array element.
func (w *ArrayWriter) Write(v any) error {
	w.scratch.Reset()
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	sep := ",\n  "
	if w.count == 0 {
		sep = "[\n  "
	}
	if _, err := w.buf.WriteString(sep); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	// Encode terminates with a newline; the separator supplies its own.
	if _, err := w.buf.Write(bytes.TrimSuffix(w.scratch.Bytes(), []byte("\n"))); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *ArrayWriter) Count() int {
	return w.count
}

// Close terminates the array, flushes and closes the destination.
func (w *ArrayWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	tail := "\n]"
	if w.count == 0 {
		tail = "[]"
	}
	_, writeErr := w.buf.WriteString(tail)
	flushErr := w.buf.Flush()
	closeErr := w.dst.Close()
	for _, err := range []error{writeErr, flushErr, closeErr} {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	return nil
}
