package jsonl

import "errors"

var (
	// ErrConsumed is returned when a Reader is iterated a second time.
	ErrConsumed = errors.New("reader already consumed")

	// ErrRead indicates the underlying source could not be read.
	ErrRead = errors.New("read failed")

	// ErrWrite indicates a record could not be written to a sink.
	ErrWrite = errors.New("write failed")

	// ErrNotArray is returned by ReadArray when the file is not a JSON array.
	ErrNotArray = errors.New("expected JSON array")

	// ErrNoMatches is returned by Expand when a glob matches no files.
	ErrNoMatches = errors.New("pattern matched no files")
)
