package ai

import "errors"

var (
	// ErrUnknownProvider is returned for an embedding provider name outside the supported set.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrModelRequired is returned when no embedding model is configured.
	ErrModelRequired = errors.New("embedding model required")

	// ErrAPIKeyRequired is returned when a hosted provider has no API key.
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrInvalidDimension is returned for a non-positive mock vector dimension.
	ErrInvalidDimension = errors.New("dimension must be positive")
)
