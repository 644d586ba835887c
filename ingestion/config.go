package ingestion

import (
	"fmt"
	"time"
)

// Config holds the batching and retry settings for an ingestion run.
type Config struct {
	// BatchSize is the number of documents written per call.
	BatchSize int

	// MaxRetries is the number of retries allowed per batch after the first attempt.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. It doubles after every retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("%w: initial backoff must not be negative", ErrInvalidConfig)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("%w: max backoff %s is below initial backoff %s", ErrInvalidConfig, c.MaxBackoff, c.InitialBackoff)
	}
	return nil
}
