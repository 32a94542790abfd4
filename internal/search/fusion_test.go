package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside-dev/grist/internal/store"
)

func TestNormalizeLexicalInverts(t *testing.T) {
	// Raw bm25: more negative = better.
	hits := []store.LexicalHit{
		{ID: 1, Score: -8.0},
		{ID: 2, Score: -2.0},
		{ID: 3, Score: -5.0},
	}

	norm := normalizeLexical(hits)
	assert.Equal(t, 1.0, norm[1])
	assert.Equal(t, 0.0, norm[2])
	assert.Equal(t, 0.5, norm[3])
}

func TestNormalizeLexicalSingleScore(t *testing.T) {
	norm := normalizeLexical([]store.LexicalHit{{ID: 7, Score: -3.2}})
	assert.Equal(t, map[int64]float64{7: 1.0}, norm)

	// All tied normalizes to 1.0 as well.
	norm = normalizeLexical([]store.LexicalHit{
		{ID: 1, Score: -3.2},
		{ID: 2, Score: -3.2},
	})
	assert.Equal(t, 1.0, norm[1])
	assert.Equal(t, 1.0, norm[2])
}

func TestNormalizeLexicalEmpty(t *testing.T) {
	assert.Empty(t, normalizeLexical(nil))
}

func TestNormalizeSemantic(t *testing.T) {
	hits := []store.VectorHit{
		{ID: 1, Distance: 0.0}, // sim 1.0
		{ID: 2, Distance: 2.0}, // sim 0.0
		{ID: 3, Distance: 1.0}, // sim 0.5
	}

	norm := normalizeSemantic(hits)
	assert.Equal(t, 1.0, norm[1])
	assert.Equal(t, 0.0, norm[2])
	assert.Equal(t, 0.5, norm[3])
}

func TestNormalizeSemanticSingleDistance(t *testing.T) {
	norm := normalizeSemantic([]store.VectorHit{{ID: 4, Distance: 0.8}})
	assert.Equal(t, map[int64]float64{4: 1.0}, norm)
}

func TestFuseUnionWithZeroDefaults(t *testing.T) {
	lexical := map[int64]float64{1: 1.0, 2: 0.4}
	semantic := map[int64]float64{2: 1.0, 3: 0.6}

	scored := fuse(lexical, semantic, Weights{Keyword: 0.3, Semantic: 0.7})
	require.Len(t, scored, 3)

	byID := make(map[int64]fusedScore)
	for _, s := range scored {
		byID[s.id] = s
	}

	// Record 1: lexical only, semantic defaults to 0.
	assert.InDelta(t, 0.3, byID[1].final, 1e-9)
	assert.Equal(t, 0.0, byID[1].semantic)
	// Record 2: both paths.
	assert.InDelta(t, 0.3*0.4+0.7*1.0, byID[2].final, 1e-9)
	// Record 3: semantic only.
	assert.InDelta(t, 0.42, byID[3].final, 1e-9)

	// Sorted descending by final score.
	assert.Equal(t, int64(2), scored[0].id)
}

func TestFuseTiesBreakByAscendingID(t *testing.T) {
	lexical := map[int64]float64{5: 1.0, 2: 1.0, 9: 1.0}

	scored := fuse(lexical, nil, Weights{Keyword: 1.0, Semantic: 0.0})
	require.Len(t, scored, 3)
	assert.Equal(t, int64(2), scored[0].id)
	assert.Equal(t, int64(5), scored[1].id)
	assert.Equal(t, int64(9), scored[2].id)
}

func TestFuseWeightSensitivity(t *testing.T) {
	lexical := map[int64]float64{1: 1.0, 2: 0.1}
	semantic := map[int64]float64{1: 0.1, 2: 1.0}

	keywordHeavy := fuse(lexical, semantic, Weights{Keyword: 0.9, Semantic: 0.1})
	assert.Equal(t, int64(1), keywordHeavy[0].id)

	semanticHeavy := fuse(lexical, semantic, Weights{Keyword: 0.1, Semantic: 0.9})
	assert.Equal(t, int64(2), semanticHeavy[0].id)
}

func TestFuseEmpty(t *testing.T) {
	assert.Empty(t, fuse(nil, nil, DefaultWeights()))
}
