package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside-dev/grist/internal/config"
	"gopkg.in/yaml.v3"
)

func TestConfigInitWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grist.yaml")

	_, err := runCLI(t, "config", "init", path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// The template must parse into the real config type and validate.
	cfg := config.Default()
	require.NoError(t, yaml.Unmarshal(raw, &cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 384, cfg.Embeddings.Dimensions)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: {}\n"), 0o644))

	_, err := runCLI(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, "config", "init", path, "--force")
	require.NoError(t, err)
}
