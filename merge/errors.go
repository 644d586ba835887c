package merge

import "errors"

var (
	// ErrIndexRequired is returned when a merger is created without a metadata index.
	ErrIndexRequired = errors.New("metadata index required")

	// ErrInvalidLimit is returned for a negative sample limit.
	ErrInvalidLimit = errors.New("limit must not be negative")

	// ErrNoReviewSources is returned when Merge is called without any review input.
	ErrNoReviewSources = errors.New("no review sources")

	// ErrSinkWrite indicates a merged record could not be written to an output sink.
	ErrSinkWrite = errors.New("output sink write failed")
)
