// Package file loads ragpipe configuration from a TOML file, layering
// environment overrides on top. A missing file is not an error; every
// setting has a working default.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/parchlab/ragpipe/internal/core/domain"
)

// Backend and provider names accepted in the config file.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Config is the full ragpipe configuration tree.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Query     QueryConfig     `toml:"query"`
	Extract   ExtractConfig   `toml:"extract"`
}

// StorageConfig selects and parameterises the chunk store backend.
type StorageConfig struct {
	// Backend is "postgres" or "sqlite".
	Backend string `toml:"backend"`

	// DatabaseURL is the postgres connection string. The DATABASE_URL
	// environment variable overrides it.
	DatabaseURL string `toml:"database_url"`

	// SQLitePath is the directory holding the sqlite database file.
	SQLitePath string `toml:"sqlite_path"`
}

// EmbeddingConfig selects and parameterises the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "local".
	Provider string `toml:"provider"`

	Model             string  `toml:"model"`
	Dimensions        int     `toml:"dimensions"`
	BaseURL           string  `toml:"base_url"`
	APIKeyEnv         string  `toml:"api_key_env"`
	TimeoutSecs       int     `toml:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LLMConfig parameterises answer generation. Generation is optional:
// with no API key available, ingestion still works and only query
// answering is disabled.
type LLMConfig struct {
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	APIKeyEnv   string  `toml:"api_key_env"`
	TimeoutSecs int     `toml:"timeout_secs"`
	Temperature float64 `toml:"temperature"`
}

// ChunkingConfig parameterises the text splitter.
type ChunkingConfig struct {
	DefaultSize int `toml:"default_size"`
	MinSize     int `toml:"min_size"`
	MaxSize     int `toml:"max_size"`
	MaxOverlap  int `toml:"max_overlap"`
}

// QueryConfig parameterises retrieval.
type QueryConfig struct {
	DefaultTopK int `toml:"default_top_k"`
	MaxTopK     int `toml:"max_top_k"`
}

// ExtractConfig parameterises PDF extraction.
type ExtractConfig struct {
	Command     string `toml:"command"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// Default returns the configuration used when no file is present: a
// local sqlite store with the in-process embedder, so a fresh checkout
// works without any external service.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SQLitePath: defaultDataDir(),
		},
		Embedding: EmbeddingConfig{
			Provider:          ProviderLocal,
			Dimensions:        384,
			APIKeyEnv:         "OPENAI_API_KEY",
			TimeoutSecs:       60,
			RequestsPerSecond: 5,
		},
		LLM: LLMConfig{
			Model:       "o4-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 120,
			Temperature: 0.2,
		},
		Chunking: ChunkingConfig{
			DefaultSize: 1000,
			MinSize:     200,
			MaxSize:     4000,
			MaxOverlap:  800,
		},
		Query: QueryConfig{
			DefaultTopK: 4,
			MaxTopK:     10,
		},
		Extract: ExtractConfig{
			Command:     "mineru",
			TimeoutSecs: 180,
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.ragpipe/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".ragpipe", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".ragpipe")
}

// Load reads path, applies environment overrides and fills unset fields
// with defaults, in that order — defaults are layered under the file, not
// over it, so a file that picks a provider still gets that provider's
// dependent defaults. A missing file yields the defaults; a file that
// exists but does not parse is a configuration error.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return Config{}, fmt.Errorf("%w: reading %s: %v", domain.ErrConfiguration, path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv layers well-known environment variables over the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
		if c.Storage.Backend == "" {
			c.Storage.Backend = BackendPostgres
		}
	}
	if v := os.Getenv("RAGPIPE_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("RAGPIPE_CHAT_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

// fillDefaults backfills fields an explicit file left zero.
func (c *Config) fillDefaults() {
	def := Default()

	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = def.Storage.SQLitePath
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = def.Embedding.Provider
	}
	if c.Embedding.Dimensions <= 0 {
		if c.Embedding.Provider == ProviderOpenAI {
			c.Embedding.Dimensions = 1536
		} else {
			c.Embedding.Dimensions = def.Embedding.Dimensions
		}
	}
	if c.Embedding.APIKeyEnv == "" {
		c.Embedding.APIKeyEnv = def.Embedding.APIKeyEnv
	}
	if c.Embedding.TimeoutSecs <= 0 {
		c.Embedding.TimeoutSecs = def.Embedding.TimeoutSecs
	}
	if c.Embedding.RequestsPerSecond <= 0 {
		c.Embedding.RequestsPerSecond = def.Embedding.RequestsPerSecond
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if c.LLM.TimeoutSecs <= 0 {
		c.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = def.LLM.Temperature
	}
	if c.Chunking.DefaultSize <= 0 {
		c.Chunking.DefaultSize = def.Chunking.DefaultSize
	}
	if c.Chunking.MinSize <= 0 {
		c.Chunking.MinSize = def.Chunking.MinSize
	}
	if c.Chunking.MaxSize <= 0 {
		c.Chunking.MaxSize = def.Chunking.MaxSize
	}
	if c.Chunking.MaxOverlap <= 0 {
		c.Chunking.MaxOverlap = def.Chunking.MaxOverlap
	}
	if c.Query.DefaultTopK <= 0 {
		c.Query.DefaultTopK = def.Query.DefaultTopK
	}
	if c.Query.MaxTopK <= 0 {
		c.Query.MaxTopK = def.Query.MaxTopK
	}
	if c.Extract.Command == "" {
		c.Extract.Command = def.Extract.Command
	}
	if c.Extract.TimeoutSecs <= 0 {
		c.Extract.TimeoutSecs = def.Extract.TimeoutSecs
	}
}

// Validate checks cross-field consistency. All violations are
// configuration errors and abort startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendPostgres:
		if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
			return fmt.Errorf("%w: postgres backend requires storage.database_url or DATABASE_URL", domain.ErrConfiguration)
		}
	case BackendSQLite:
		// Always usable.
	default:
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfiguration, c.Storage.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, c.Embedding.Provider)
	}

	if c.Chunking.MinSize > c.Chunking.MaxSize {
		return fmt.Errorf("%w: chunking.min_size exceeds chunking.max_size", domain.ErrConfiguration)
	}
	if c.Query.DefaultTopK > c.Query.MaxTopK {
		return fmt.Errorf("%w: query.default_top_k exceeds query.max_top_k", domain.ErrConfiguration)
	}
	return nil
}

// APIKey resolves the embedding or LLM API key from the configured
// environment variable. Empty means no key available.
func (e EmbeddingConfig) APIKey() string {
	return os.Getenv(e.APIKeyEnv)
}

// APIKey resolves the LLM API key. Empty means generation is disabled.
func (l LLMConfig) APIKey() string {
	return os.Getenv(l.APIKeyEnv)
}

// Timeout returns the embedding request timeout as a duration.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// Timeout returns the generation request timeout as a duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSecs) * time.Second
}

// Timeout returns the extraction timeout as a duration.
func (x ExtractConfig) Timeout() time.Duration {
	return time.Duration(x.TimeoutSecs) * time.Second
}
