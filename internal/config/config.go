// Package config loads grist configuration from YAML with environment
// overrides. Defaults work out of the box; the file and every variable are
// optional.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

// Config is the full application configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig locates the data directory.
type PathsConfig struct {
	// DataDir holds the SQLite database and lock file.
	DataDir string `yaml:"data_dir"`
}

// EmbeddingsConfig configures the embedding backend.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// CacheSize is the ingestion-path LRU embedding cache (entries).
	CacheSize int `yaml:"cache_size"`
	// TimeoutSeconds bounds each backend request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (e EmbeddingsConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// SearchConfig configures fusion search.
type SearchConfig struct {
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	CandidateLimit int     `yaml:"candidate_limit"`
	DefaultTopK    int     `yaml:"default_top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
	// ContextMaxChars is the prompt-context character budget.
	ContextMaxChars int `yaml:"context_max_chars"`
}

// IngestConfig configures corpus ingestion.
type IngestConfig struct {
	// DocsDir is the document corpus directory.
	DocsDir string `yaml:"docs_dir"`
	// Watch re-ingests documents as they change on disk.
	Watch bool `yaml:"watch"`
	// WatchDebounceMillis is the watcher quiet period.
	WatchDebounceMillis int `yaml:"watch_debounce_ms"`
	MinChunkTokens      int `yaml:"min_chunk_tokens"`
	MaxChunkTokens      int `yaml:"max_chunk_tokens"`
}

// WatchDebounce returns the debounce as a duration.
func (i IngestConfig) WatchDebounce() time.Duration {
	return time.Duration(i.WatchDebounceMillis) * time.Millisecond
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: PathsConfig{DataDir: ".grist"},
		Embeddings: EmbeddingsConfig{
			Provider:       "ollama",
			Model:          "all-minilm",
			OllamaHost:     "http://localhost:11434",
			Dimensions:     384,
			BatchSize:      32,
			CacheSize:      2048,
			TimeoutSeconds: 120,
		},
		Search: SearchConfig{
			KeywordWeight:   0.3,
			SemanticWeight:  0.7,
			CandidateLimit:  100,
			DefaultTopK:     10,
			MaxTopK:         50,
			ContextMaxChars: 4000,
		},
		Ingest: IngestConfig{
			DocsDir:             "docs",
			Watch:               false,
			WatchDebounceMillis: 500,
			MinChunkTokens:      250,
			MaxChunkTokens:      500,
		},
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8642},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration: defaults, then the YAML file at path (skipped
// when path is empty and missing files are an error only for explicit
// paths), then GRIST_* environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, gerrors.Newf(gerrors.ErrCodeConfigNotFound,
					"config file %s does not exist", path)
			}
			return Config{}, gerrors.New(gerrors.ErrCodeConfigInvalid, "read config", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, gerrors.New(gerrors.ErrCodeConfigInvalid, "parse config", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays GRIST_* environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Paths.DataDir, "GRIST_DATA_DIR")
	setString(&cfg.Embeddings.Provider, "GRIST_EMBEDDINGS_PROVIDER")
	setString(&cfg.Embeddings.Model, "GRIST_EMBEDDINGS_MODEL")
	setString(&cfg.Embeddings.OllamaHost, "GRIST_OLLAMA_HOST")
	setInt(&cfg.Embeddings.Dimensions, "GRIST_EMBEDDINGS_DIMENSIONS")
	setInt(&cfg.Embeddings.BatchSize, "GRIST_EMBEDDINGS_BATCH_SIZE")
	setFloat(&cfg.Search.KeywordWeight, "GRIST_KEYWORD_WEIGHT")
	setFloat(&cfg.Search.SemanticWeight, "GRIST_SEMANTIC_WEIGHT")
	setString(&cfg.Ingest.DocsDir, "GRIST_DOCS_DIR")
	setBool(&cfg.Ingest.Watch, "GRIST_WATCH")
	setString(&cfg.Server.Host, "GRIST_SERVER_HOST")
	setInt(&cfg.Server.Port, "GRIST_SERVER_PORT")
	setString(&cfg.Logging.Level, "GRIST_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Embeddings.Dimensions <= 0 {
		return gerrors.Newf(gerrors.ErrCodeConfigInvalid,
			"embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Search.KeywordWeight < 0 || c.Search.SemanticWeight < 0 {
		return gerrors.Newf(gerrors.ErrCodeConfigInvalid,
			"search weights must be non-negative (keyword=%g, semantic=%g)",
			c.Search.KeywordWeight, c.Search.SemanticWeight)
	}
	if c.Search.KeywordWeight == 0 && c.Search.SemanticWeight == 0 {
		return gerrors.Newf(gerrors.ErrCodeConfigInvalid,
			"at least one search weight must be positive")
	}
	if c.Ingest.MinChunkTokens > 0 && c.Ingest.MaxChunkTokens > 0 &&
		c.Ingest.MinChunkTokens > c.Ingest.MaxChunkTokens {
		return gerrors.Newf(gerrors.ErrCodeConfigInvalid,
			"ingest.min_chunk_tokens (%d) exceeds max_chunk_tokens (%d)",
			c.Ingest.MinChunkTokens, c.Ingest.MaxChunkTokens)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return gerrors.Newf(gerrors.ErrCodeConfigInvalid,
			"server.port %d out of range", c.Server.Port)
	}
	return nil
}
