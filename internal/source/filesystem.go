package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// markdownExts are the file extensions the directory source picks up.
var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

var firstHeading = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// DirSource reads Markdown and plaintext documents from a directory tree.
// Document ids are slash-separated paths relative to the root, so they are
// stable across machines.
type DirSource struct {
	root string
}

var _ Source = (*DirSource)(nil)

// NewDirSource creates a directory source rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Root returns the source's root directory.
func (s *DirSource) Root() string { return s.root }

// FetchDocuments walks the tree and loads every matching file, sorted by
// id for deterministic ingestion order. Hidden directories are skipped.
func (s *DirSource) FetchDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !markdownExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		doc, err := s.LoadDocument(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// LoadDocument loads a single document by its id (slash-separated relative
// path). The title is the first # heading, or the file name without
// extension when there is none.
func (s *DirSource) LoadDocument(id string) (Document, error) {
	path := filepath.Join(s.root, filepath.FromSlash(id))

	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", id, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", id, err)
	}

	content := string(raw)
	title := titleFor(content, id)

	return Document{
		ID:           id,
		Title:        title,
		Content:      content,
		LastModified: info.ModTime(),
	}, nil
}

// Matches reports whether a path (relative or absolute) is a file this
// source would ingest.
func (s *DirSource) Matches(path string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(path))]
}

func titleFor(content, id string) string {
	if m := firstHeading.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	base := filepath.Base(id)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
