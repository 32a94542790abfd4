package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside-dev/grist/internal/embed"
)

// runCLI executes the root command with args against a temp data dir and a
// static embedder, returning stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	embed.ResetShared()
	t.Cleanup(embed.ResetShared)

	buf := &bytes.Buffer{}
	cmd := NewRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return buf.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "data")
	docsDir := filepath.Join(t.TempDir(), "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	t.Setenv("GRIST_DATA_DIR", dataDir)
	t.Setenv("GRIST_DOCS_DIR", docsDir)
	t.Setenv("GRIST_EMBEDDINGS_PROVIDER", "static")
	return docsDir
}

func TestRootListsSubcommands(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "sync", "search", "stats", "delete", "doctor", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestSyncSearchStatsDeleteFlow(t *testing.T) {
	docsDir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "brewing.md"),
		[]byte("# Brewing Guide\n\nGrind fresh beans just before brewing for better flavor."), 0o644))

	out, err := runCLI(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "documents processed: 1")
	assert.Contains(t, out, "chunks created: 1")

	out, err = runCLI(t, "search", "fresh", "beans")
	require.NoError(t, err)
	assert.Contains(t, out, "brewing.md")
	assert.Contains(t, out, "score")

	out, err = runCLI(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total embeddings: 1")
	assert.Contains(t, out, "business_doc: 1")

	out, err = runCLI(t, "delete", "business_doc", "--source-id", "brewing.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 embeddings")

	out, err = runCLI(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total embeddings: 0")
}

func TestSearchJSONFormat(t *testing.T) {
	docsDir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "menu.md"),
		[]byte("# Menu\n\nPour-over, espresso, and seasonal cold brew."), 0o644))

	_, err := runCLI(t, "sync")
	require.NoError(t, err)

	out, err := runCLI(t, "search", "espresso", "--format", "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
	assert.Contains(t, out, `"source_id": "menu.md"`)
	assert.Contains(t, out, `"final_score"`)
}

func TestDeleteRejectsUnknownType(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "delete", "tweet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}

func TestDoctorOnHealthyStore(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "all structures agree")
}
