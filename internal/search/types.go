// Package search implements fused lexical+semantic retrieval over the
// store, plus prompt-context formatting of the results.
package search

import (
	"github.com/hearthside-dev/grist/internal/store"
)

// Weights controls the linear fusion of the two retrieval paths.
// They are not required to sum to 1; they simply scale each side's
// normalized score.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// DefaultWeights favors the semantic side.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.3, Semantic: 0.7}
}

// Options configures a single search call.
type Options struct {
	// TopK is the maximum number of results. Zero means the engine
	// default; values above the engine maximum are capped.
	TopK int
	// SourceTypes restricts results to these types. Nil means all.
	SourceTypes []store.SourceType
	// Weights overrides the engine default fusion weights.
	Weights *Weights
}

// Result is one fused search hit. KeywordScore and SemanticScore are the
// min-max normalized per-path scores in [0,1]; a record found by only one
// path scores 0 on the other. FinalScore is their weighted sum.
type Result struct {
	ID            int64
	Content       string
	SourceType    store.SourceType
	SourceID      string
	Metadata      store.Metadata
	KeywordScore  float64
	SemanticScore float64
	FinalScore    float64
}

// Config holds engine-level settings.
type Config struct {
	// DefaultTopK is used when a call does not specify TopK.
	DefaultTopK int
	// MaxTopK caps any requested TopK.
	MaxTopK int
	// CandidateLimit bounds each retrieval path before fusion.
	CandidateLimit int
	// Weights is the default fusion weighting.
	Weights Weights
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		DefaultTopK:    10,
		MaxTopK:        50,
		CandidateLimit: 100,
		Weights:        DefaultWeights(),
	}
}
