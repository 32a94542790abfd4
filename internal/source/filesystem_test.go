package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirSourceFetchDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide.md", "# Brewing Guide\n\nUse fresh beans.")
	writeFile(t, root, "notes/menu.txt", "Seasonal menu draft")
	writeFile(t, root, "ignore.png", "binary")
	writeFile(t, root, ".hidden/secret.md", "# Secret")

	docs, err := NewDirSource(root).FetchDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Sorted by id.
	assert.Equal(t, "guide.md", docs[0].ID)
	assert.Equal(t, "Brewing Guide", docs[0].Title)
	assert.Contains(t, docs[0].Content, "fresh beans")
	assert.False(t, docs[0].LastModified.IsZero())

	assert.Equal(t, "notes/menu.txt", docs[1].ID)
	assert.Equal(t, "menu", docs[1].Title, "falls back to file name without extension")
}

func TestDirSourceLoadDocument(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/policy.md", "## Not an h1\n\nbody")

	doc, err := NewDirSource(root).LoadDocument("docs/policy.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/policy.md", doc.ID)
	assert.Equal(t, "policy", doc.Title, "h2 headers do not become titles")

	_, err = NewDirSource(root).LoadDocument("missing.md")
	assert.Error(t, err)
}

func TestDirSourceMatches(t *testing.T) {
	s := NewDirSource(t.TempDir())
	assert.True(t, s.Matches("a/b.md"))
	assert.True(t, s.Matches("B.MARKDOWN"))
	assert.True(t, s.Matches("notes.txt"))
	assert.False(t, s.Matches("image.png"))
	assert.False(t, s.Matches("code.go"))
}
