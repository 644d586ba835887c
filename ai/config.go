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


package ai

import (
	"fmt"
	"strings"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGoogle Provider = "google"
	ProviderOllama Provider = "ollama"
	ProviderMock   Provider = "mock"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderOpenAI, ProviderGoogle, ProviderOllama, ProviderMock}

// ParseProvider maps a configured name onto the supported set.
// Matching is case-insensitive.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Config holds configuration for an embedding provider.
type Config struct {
	// Provider selects the embedding backend.
	Provider Provider

	// Model is the embedding model identifier.
	// Example: "text-embedding-3-small", "text-embedding-004", "nomic-embed-text"
	Model string

	// Host is the base URL of the service. Empty means the provider's public endpoint.
	// Example: "http://localhost:11434" for a local Ollama server
	Host string

	// APIKey authenticates against hosted providers.
	APIKey string

	// Dimension is the vector size produced by the mock provider.
	Dimension int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding backend.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithHost sets the service base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimension sets the mock vector dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// DefaultConfig returns a Config for OpenAI's small embedding model.
func DefaultConfig() *Config {
	return &Config{
		Provider:  ProviderOpenAI,
		Model:     "text-embedding-3-small",
		Dimension: 384,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get the /v1 suffix those APIs expect.
func (c *Config) Normalize() {
	c.Provider = Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if _, err := ParseProvider(string(c.Provider)); err != nil {
		return err
	}

	switch c.Provider {
	case ProviderMock:
		if c.Dimension <= 0 {
			return fmt.Errorf("ai config: %w", ErrInvalidDimension)
		}
		return nil
	case ProviderGoogle:
		if c.APIKey == "" {
			return fmt.Errorf("ai config: %w for provider %s", ErrAPIKeyRequired, c.Provider)
		}
	case ProviderOpenAI:
		// A custom host may be a local OpenAI-compatible server without auth.
		if c.APIKey == "" && c.Host == "" {
			return fmt.Errorf("ai config: %w for provider %s", ErrAPIKeyRequired, c.Provider)
		}
	}

	if c.Model == "" {
		return fmt.Errorf("ai config: %w", ErrModelRequired)
	}
	return nil
}
