package pgvector

import "fmt"

// DefaultCollection is the langchaingo collection documents are written to.
const DefaultCollection = "reviews"

// Config holds the connection settings.
type Config struct {
	// URL is a libpq connection string or postgres:// URL.
	URL string

	Collection string

	// Dimension, when positive, is declared on the embedding column.
	Dimension int
}

// DefaultConfig returns a Config writing to DefaultCollection. URL must still be set.
func DefaultConfig() Config {
	return Config{Collection: DefaultCollection}
}

// Validate checks the settings without connecting.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: connection url is required", ErrInvalidConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidConfig)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("%w: dimension must not be negative", ErrInvalidConfig)
	}
	return nil
}
