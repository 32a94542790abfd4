package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 384, cfg.Embeddings.Dimensions)
	assert.Equal(t, 0.3, cfg.Search.KeywordWeight)
	assert.Equal(t, 0.7, cfg.Search.SemanticWeight)
	assert.Equal(t, "127.0.0.1:8642", cfg.Server.Addr())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
paths:
  data_dir: /var/lib/grist
search:
  keyword_weight: 0.5
  semantic_weight: 0.5
embeddings:
  provider: static
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/grist", cfg.Paths.DataDir)
	assert.Equal(t, 0.5, cfg.Search.KeywordWeight)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	// Untouched values keep defaults.
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeConfigNotFound, gerrors.GetCode(err))
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRIST_OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("GRIST_KEYWORD_WEIGHT", "0.9")
	t.Setenv("GRIST_WATCH", "true")
	t.Setenv("GRIST_SERVER_PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Embeddings.OllamaHost)
	assert.Equal(t, 0.9, cfg.Search.KeywordWeight)
	assert.True(t, cfg.Ingest.Watch)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dimensions", func(c *Config) { c.Embeddings.Dimensions = 0 }},
		{"negative weight", func(c *Config) { c.Search.KeywordWeight = -0.1 }},
		{"both weights zero", func(c *Config) {
			c.Search.KeywordWeight = 0
			c.Search.SemanticWeight = 0
		}},
		{"min above max tokens", func(c *Config) {
			c.Ingest.MinChunkTokens = 600
			c.Ingest.MaxChunkTokens = 500
		}},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, gerrors.ErrCodeConfigInvalid, gerrors.GetCode(err))
		})
	}
}
