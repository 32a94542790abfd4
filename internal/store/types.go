// Package store provides the persistent embedding store: a single SQLite
// database holding record metadata and an FTS5 lexical index, plus an
// in-memory HNSW vector graph rebuilt from the database on open. All three
// structures are joined by the record's integer id.
package store

import (
	"strings"
	"time"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

// SourceType identifies where a record's content came from.
type SourceType string

const (
	// SourceTypeBusinessDoc is chunked long-form documentation.
	SourceTypeBusinessDoc SourceType = "business_doc"
	// SourceTypePost is a single published post, stored as one chunk.
	SourceTypePost SourceType = "post"
	// SourceTypeReply is a single published reply, stored as one chunk.
	SourceTypeReply SourceType = "reply"
)

// ValidSourceTypes lists every accepted source type.
var ValidSourceTypes = []SourceType{SourceTypeBusinessDoc, SourceTypePost, SourceTypeReply}

// ParseSourceType validates and converts a raw string.
func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(strings.TrimSpace(s))
	for _, v := range ValidSourceTypes {
		if st == v {
			return st, nil
		}
	}
	return "", gerrors.Newf(gerrors.ErrCodeUnknownSourceType,
		"unknown source type %q (valid: business_doc, post, reply)", s)
}

// ParseSourceTypes parses a comma-separated list of source types.
// Empty input means no filter and returns nil.
func ParseSourceTypes(csv string) ([]SourceType, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var types []SourceType
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		st, err := ParseSourceType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, st)
	}
	return types, nil
}

// Record is one embedded chunk with its provenance.
// ID is assigned by the store on insert and increases monotonically;
// ids are never reused, even after deletion.
type Record struct {
	ID         int64
	SourceType SourceType
	// SourceID groups the chunks of one logical source (document id,
	// post id). Empty for whole-corpus material with no per-source id.
	SourceID  string
	Content   string
	Metadata  Metadata
	Vector    []float32
	CreatedAt time.Time
}

// LexicalHit is one full-text match. Score is the raw FTS5 bm25() value:
// negative, and lower (more negative) means a better match.
type LexicalHit struct {
	ID    int64
	Score float64
}

// VectorHit is one nearest-neighbor match. Distance is cosine distance in
// [0,2] where 0 is identical direction.
type VectorHit struct {
	ID       int64
	Distance float64
}

// Stats summarizes store contents.
type Stats struct {
	Total  int
	ByType map[SourceType]int
}

// ConsistencyReport captures id agreement between the metadata table, the
// FTS5 table, and the vector graph.
type ConsistencyReport struct {
	MetadataCount  int
	LexicalCount   int
	VectorCount    int
	MissingLexical []int64
	MissingVector  []int64
	OrphanLexical  []int64
}

// Consistent reports whether all three structures agree.
func (r ConsistencyReport) Consistent() bool {
	return len(r.MissingLexical) == 0 && len(r.MissingVector) == 0 && len(r.OrphanLexical) == 0
}
