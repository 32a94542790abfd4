// Package source provides document sources for corpus ingestion.
package source

import (
	"context"
	"time"
)

// Document is one fetchable unit of long-form content.
type Document struct {
	// ID identifies the document within its source and becomes the
	// records' source id.
	ID string
	// Title is included in each chunk for context.
	Title string
	// Content is the full document body.
	Content string
	// LastModified is the source's modification time, when known.
	LastModified time.Time
}

// Source fetches documents for ingestion.
type Source interface {
	// FetchDocuments returns every document the source currently holds.
	FetchDocuments(ctx context.Context) ([]Document, error)
}
