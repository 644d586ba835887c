package ingestion

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrWriterRequired is returned when an ingestor is created without a document writer.
	ErrWriterRequired = errors.New("document writer required")

	// ErrInvalidConfig is returned when the ingestion configuration is invalid.
	ErrInvalidConfig = errors.New("invalid ingestion config")

	// ErrRetriesExhausted is returned when a batch still fails after the retry budget is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrPermanentFailure is returned when a batch fails with an error that must not be retried.
	ErrPermanentFailure = errors.New("permanent failure")
)

// BatchError reports the batch that aborted an ingestion run.
type BatchError struct {
	// Batch is the 1-based index of the failed batch.
	Batch int
	// Attempts is the number of write attempts made for the batch.
	Attempts int
	// Inserted holds the ids written by earlier batches of the run.
	Inserted []string
	// Kind is ErrRetriesExhausted or ErrPermanentFailure.
	Kind error
	// Err is the last error returned by the writer.
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempt(s): %v: %v", e.Batch, e.Attempts, e.Kind, e.Err)
}

// Unwrap exposes both the failure class and the underlying cause.
func (e *BatchError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Retryable() bool { return false }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether a write failure may succeed on a later attempt.
// Errors are retryable unless they are context errors or carry a
// Retryable() method that returns false.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	return true
}
