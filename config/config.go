// Package config loads the ingestion pipeline configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and the environment. Every key can be overridden with
// CSSM_<SECTION>_<KEY>; the credentials also honor their conventional names
// (ASTRADB_API_ENDPOINT, OPENAI_API_KEY, ...).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wothmag07/cssm/ai"
	"github.com/wothmag07/cssm/ingestion"
	"github.com/wothmag07/cssm/storage"
	"github.com/wothmag07/cssm/storage/astradb"
	"github.com/wothmag07/cssm/storage/pgvector"
	"github.com/wothmag07/cssm/transform"
)

// ErrInvalidConfig is returned when loaded values fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes the environment override of every key.
const EnvPrefix = "CSSM"

// DefaultSmokeQuery is the query run after ingestion.
const DefaultSmokeQuery = "Can you recommend me binoculars for hunting?"

// Config holds all configuration for the pipeline.
type Config struct {
	Data           DataConfig        `mapstructure:"data" yaml:"data"`
	Ingestion      IngestionConfig   `mapstructure:"ingestion" yaml:"ingestion"`
	EmbeddingModel EmbeddingConfig   `mapstructure:"embedding_model" yaml:"embedding_model"`
	VectorStore    VectorStoreConfig `mapstructure:"vector_store" yaml:"vector_store"`
	AstraDB        AstraDBConfig     `mapstructure:"astradb" yaml:"astradb"`
	Badger         BadgerConfig      `mapstructure:"badger" yaml:"badger"`
	PGVector       PGVectorConfig    `mapstructure:"pgvector" yaml:"pgvector"`
	SmokeCheck     SmokeCheckConfig  `mapstructure:"smoke_check" yaml:"smoke_check"`
	Logging        LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// DataConfig locates the merged dataset.
type DataConfig struct {
	JSONPath  string `mapstructure:"json_path" yaml:"json_path"`
	JSONLPath string `mapstructure:"jsonl_path" yaml:"jsonl_path"`
}

// IngestionConfig holds transform and write settings.
type IngestionConfig struct {
	Limit                 int     `mapstructure:"limit" yaml:"limit"` // 0 = all records
	Shuffle               bool    `mapstructure:"shuffle" yaml:"shuffle"`
	ShuffleSeed           int64   `mapstructure:"shuffle_seed" yaml:"shuffle_seed"` // 0 = random
	BatchSize             int     `mapstructure:"batch_size" yaml:"batch_size"`
	MaxRetries            int     `mapstructure:"max_retries" yaml:"max_retries"`
	BackoffInitialSeconds float64 `mapstructure:"backoff_initial_seconds" yaml:"backoff_initial_seconds"`
	BackoffMaxSeconds     float64 `mapstructure:"backoff_max_seconds" yaml:"backoff_max_seconds"`
	RequestsPerSecond     float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"` // 0 = unlimited
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // "openai", "google", "ollama", "mock"
	Model     string `mapstructure:"model" yaml:"model"`
	Host      string `mapstructure:"host" yaml:"host,omitempty"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Dimension int    `mapstructure:"dimension" yaml:"dimension,omitempty"`
}

// VectorStoreConfig selects the store backend.
type VectorStoreConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // "astradb", "badger", "pgvector"
}

// AstraDBConfig holds Astra DB connection settings.
type AstraDBConfig struct {
	APIEndpoint      string `mapstructure:"api_endpoint" yaml:"api_endpoint,omitempty"`
	ApplicationToken string `mapstructure:"application_token" yaml:"application_token,omitempty"`
	Keyspace         string `mapstructure:"keyspace" yaml:"keyspace"`
	CollectionName   string `mapstructure:"collection_name" yaml:"collection_name"`
	Dimension        int    `mapstructure:"dimension" yaml:"dimension"` // 0 = collection must exist
}

// BadgerConfig holds the local store location.
type BadgerConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PGVectorConfig holds PostgreSQL connection settings.
type PGVectorConfig struct {
	URL            string `mapstructure:"url" yaml:"url,omitempty"`
	CollectionName string `mapstructure:"collection_name" yaml:"collection_name"`
}

// SmokeCheckConfig controls the post-ingestion query.
type SmokeCheckConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Query   string `mapstructure:"query" yaml:"query"`
	TopK    int    `mapstructure:"top_k" yaml:"top_k"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	ing := ingestion.DefaultConfig()
	return &Config{
		Data: DataConfig{
			JSONPath:  "data/merged_electronics_data.json",
			JSONLPath: "data/merged_electronics_data.jsonl",
		},
		Ingestion: IngestionConfig{
			BatchSize:             ing.BatchSize,
			MaxRetries:            ing.MaxRetries,
			BackoffInitialSeconds: ing.InitialBackoff.Seconds(),
			BackoffMaxSeconds:     ing.MaxBackoff.Seconds(),
		},
		EmbeddingModel: EmbeddingConfig{
			Provider: string(ai.ProviderOpenAI),
			Model:    "text-embedding-3-small",
		},
		VectorStore: VectorStoreConfig{
			Provider: string(storage.BackendAstraDB),
		},
		AstraDB: AstraDBConfig{
			Keyspace:       astradb.DefaultKeyspace,
			CollectionName: "amazon_electronics_reviews",
		},
		Badger: BadgerConfig{
			Path: "data/vectors",
		},
		PGVector: PGVectorConfig{
			CollectionName: pgvector.DefaultCollection,
		},
		SmokeCheck: SmokeCheckConfig{
			Enabled: true,
			Query:   DefaultSmokeQuery,
			TopK:    4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// conventionalEnv lists the unprefixed variables honored for a key, in precedence order.
var conventionalEnv = map[string][]string{
	"astradb.api_endpoint":      {"ASTRADB_API_ENDPOINT"},
	"astradb.application_token": {"ASTRADB_APPLICATION_TOKEN"},
	"astradb.keyspace":          {"ASTRADB_KEYSPACE"},
	"pgvector.url":              {"PGVECTOR_URL"},
}

// Load reads configuration from path, the environment and defaults.
// An empty path looks for config.yaml in . and ./config and uses defaults
// when none is found; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable settings
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, names := range conventionalEnv {
		args := append([]string{key, EnvPrefix + "_" + envKey(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.EmbeddingModel.APIKey == "" {
		cfg.EmbeddingModel.APIKey = providerAPIKey(cfg.EmbeddingModel.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("data.json_path", d.Data.JSONPath)
	v.SetDefault("data.jsonl_path", d.Data.JSONLPath)

	v.SetDefault("ingestion.limit", d.Ingestion.Limit)
	v.SetDefault("ingestion.shuffle", d.Ingestion.Shuffle)
	v.SetDefault("ingestion.shuffle_seed", d.Ingestion.ShuffleSeed)
	v.SetDefault("ingestion.batch_size", d.Ingestion.BatchSize)
	v.SetDefault("ingestion.max_retries", d.Ingestion.MaxRetries)
	v.SetDefault("ingestion.backoff_initial_seconds", d.Ingestion.BackoffInitialSeconds)
	v.SetDefault("ingestion.backoff_max_seconds", d.Ingestion.BackoffMaxSeconds)
	v.SetDefault("ingestion.requests_per_second", d.Ingestion.RequestsPerSecond)

	v.SetDefault("embedding_model.provider", d.EmbeddingModel.Provider)
	v.SetDefault("embedding_model.model", d.EmbeddingModel.Model)
	v.SetDefault("embedding_model.host", d.EmbeddingModel.Host)
	v.SetDefault("embedding_model.api_key", d.EmbeddingModel.APIKey)
	v.SetDefault("embedding_model.dimension", d.EmbeddingModel.Dimension)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)

	v.SetDefault("astradb.api_endpoint", d.AstraDB.APIEndpoint)
	v.SetDefault("astradb.application_token", d.AstraDB.ApplicationToken)
	v.SetDefault("astradb.keyspace", d.AstraDB.Keyspace)
	v.SetDefault("astradb.collection_name", d.AstraDB.CollectionName)
	v.SetDefault("astradb.dimension", d.AstraDB.Dimension)

	v.SetDefault("badger.path", d.Badger.Path)

	v.SetDefault("pgvector.url", d.PGVector.URL)
	v.SetDefault("pgvector.collection_name", d.PGVector.CollectionName)

	v.SetDefault("smoke_check.enabled", d.SmokeCheck.Enabled)
	v.SetDefault("smoke_check.query", d.SmokeCheck.Query)
	v.SetDefault("smoke_check.top_k", d.SmokeCheck.TopK)

	v.SetDefault("logging.level", d.Logging.Level)
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// providerAPIKey returns the conventional API key variable for provider.
func providerAPIKey(provider string) string {
	switch ai.Provider(strings.ToLower(strings.TrimSpace(provider))) {
	case ai.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ai.ProviderGoogle:
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}

// Validate checks the values needed by the selected provider and store.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	in := c.Ingestion
	if in.Limit < 0 {
		add("ingestion.limit must not be negative, got %d", in.Limit)
	}
	if in.RequestsPerSecond < 0 {
		add("ingestion.requests_per_second must not be negative, got %g", in.RequestsPerSecond)
	}
	if err := c.IngestionConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	backend, err := storage.ParseBackend(c.VectorStore.Provider)
	if err != nil {
		errs = append(errs, err)
	}
	switch backend {
	case storage.BackendAstraDB:
		if err := c.AstraDBConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	case storage.BackendBadger:
		if c.Badger.Path == "" {
			add("badger.path is required")
		}
	case storage.BackendPGVector:
		if err := c.PGVectorConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.SmokeCheck.Enabled {
		if strings.TrimSpace(c.SmokeCheck.Query) == "" {
			add("smoke_check.query is required when the smoke check is enabled")
		}
		if c.SmokeCheck.TopK < 1 {
			add("smoke_check.top_k must be positive, got %d", c.SmokeCheck.TopK)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IngestionConfig converts the retry and batching settings.
func (c *Config) IngestionConfig() *ingestion.Config {
	return &ingestion.Config{
		BatchSize:      c.Ingestion.BatchSize,
		MaxRetries:     c.Ingestion.MaxRetries,
		InitialBackoff: seconds(c.Ingestion.BackoffInitialSeconds),
		MaxBackoff:     seconds(c.Ingestion.BackoffMaxSeconds),
	}
}

// TransformOptions converts the limit and shuffle settings.
func (c *Config) TransformOptions() []transform.Option {
	opts := []transform.Option{
		transform.WithLimit(c.Ingestion.Limit),
		transform.WithShuffle(c.Ingestion.Shuffle),
	}
	if c.Ingestion.ShuffleSeed != 0 {
		opts = append(opts, transform.WithShuffleSeed(c.Ingestion.ShuffleSeed))
	}
	return opts
}

// AIConfig converts the embedding settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.Provider(c.EmbeddingModel.Provider)),
		ai.WithModel(c.EmbeddingModel.Model),
		ai.WithHost(c.EmbeddingModel.Host),
		ai.WithAPIKey(c.EmbeddingModel.APIKey),
		ai.WithDimension(c.embeddingDimension()),
	)
}

// embeddingDimension is the mock vector size: the explicit setting, else the
// Astra collection dimension, else the ai default.
func (c *Config) embeddingDimension() int {
	switch {
	case c.EmbeddingModel.Dimension > 0:
		return c.EmbeddingModel.Dimension
	case c.AstraDB.Dimension > 0:
		return c.AstraDB.Dimension
	default:
		return ai.DefaultConfig().Dimension
	}
}

// AstraDBConfig converts the Astra DB settings.
func (c *Config) AstraDBConfig() astradb.Config {
	cfg := astradb.DefaultConfig()
	cfg.APIEndpoint = c.AstraDB.APIEndpoint
	cfg.Token = c.AstraDB.ApplicationToken
	cfg.Keyspace = c.AstraDB.Keyspace
	cfg.Collection = c.AstraDB.CollectionName
	cfg.Dimension = c.AstraDB.Dimension
	return cfg
}

// PGVectorConfig converts the PostgreSQL settings.
func (c *Config) PGVectorConfig() pgvector.Config {
	cfg := pgvector.DefaultConfig()
	cfg.URL = c.PGVector.URL
	cfg.Collection = c.PGVector.CollectionName
	cfg.Dimension = c.EmbeddingModel.Dimension
	return cfg
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
