package astradb

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultKeyspace is the keyspace Astra creates with every database.
	DefaultKeyspace = "default_keyspace"

	// DefaultTimeout bounds a single Data API request.
	DefaultTimeout = 30 * time.Second

	// DefaultInsertBatchSize is the number of documents per insertMany request.
	DefaultInsertBatchSize = 20
)

// Config holds the connection settings for one collection.
type Config struct {
	// APIEndpoint is the database endpoint, e.g. https://<id>-<region>.apps.astra.datastax.com.
	APIEndpoint string

	// Token is the application token sent in the Token header.
	Token string

	Keyspace   string
	Collection string

	// Dimension, when positive, makes Open create the collection as a
	// cosine vector collection of that size.
	Dimension int

	Timeout         time.Duration
	InsertBatchSize int
}

// DefaultConfig returns a Config with the default keyspace and limits.
// Endpoint, token and collection must still be set.
func DefaultConfig() Config {
	return Config{
		Keyspace:        DefaultKeyspace,
		Timeout:         DefaultTimeout,
		InsertBatchSize: DefaultInsertBatchSize,
	}
}

// Validate checks that the configuration can address a collection.
func (c Config) Validate() error {
	if c.APIEndpoint == "" {
		return fmt.Errorf("%w: api endpoint is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.APIEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api endpoint %q is not an absolute URL", ErrInvalidConfig, c.APIEndpoint)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: application token is required", ErrInvalidConfig)
	}
	if c.Keyspace == "" {
		return fmt.Errorf("%w: keyspace is required", ErrInvalidConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidConfig)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("%w: dimension must not be negative", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.InsertBatchSize < 1 {
		return fmt.Errorf("%w: insert batch size must be positive", ErrInvalidConfig)
	}
	return nil
}
