package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside-dev/grist/internal/store"
)

func TestFormatAsContextEmpty(t *testing.T) {
	assert.Equal(t, "No relevant context found.", FormatAsContext(nil, 4000))
	assert.Equal(t, "No relevant context found.", FormatAsContext([]Result{}, 4000))
}

func TestFormatAsContextNumberingAndLabels(t *testing.T) {
	results := []Result{
		{SourceType: store.SourceTypeBusinessDoc, Content: "doc content", FinalScore: 0.91},
		{SourceType: store.SourceTypePost, Content: "post content", FinalScore: 0.52},
		{SourceType: store.SourceTypeReply, Content: "reply content", FinalScore: 0.33},
	}

	out := FormatAsContext(results, 4000)

	assert.Contains(t, out, "[1. Business Documentation] (relevance: 0.91)")
	assert.Contains(t, out, "[2. Previous Post] (relevance: 0.52)")
	assert.Contains(t, out, "[3. Previous Reply] (relevance: 0.33)")
	assert.Contains(t, out, "doc content")

	// Entries are separated by a blank line.
	assert.Contains(t, out, "doc content\n\n[2.")
}

func TestFormatAsContextTruncatesLongContent(t *testing.T) {
	results := []Result{
		{SourceType: store.SourceTypePost, Content: strings.Repeat("x", 5000), FinalScore: 1.0},
	}

	out := FormatAsContext(results, 500)
	assert.LessOrEqual(t, len(out), 500)
	assert.True(t, strings.HasSuffix(strings.TrimRight(out, "\n"), "..."))
}

func TestFormatAsContextTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte content truncated under a range of budgets: some cut
	// points land mid-rune and must back up instead of splitting the
	// character.
	results := []Result{
		{SourceType: store.SourceTypePost, Content: strings.Repeat("señal de café ", 200), FinalScore: 1.0},
	}

	for budget := 300; budget < 310; budget++ {
		out := FormatAsContext(results, budget)
		assert.True(t, utf8.ValidString(out), "budget %d produced invalid UTF-8", budget)
		assert.True(t, strings.HasSuffix(strings.TrimRight(out, "\n"), "..."))
		assert.LessOrEqual(t, len(out), budget)
	}
}

func TestFormatAsContextDropsEntriesPastBudget(t *testing.T) {
	var results []Result
	for i := 0; i < 10; i++ {
		results = append(results, Result{
			SourceType: store.SourceTypePost,
			Content:    strings.Repeat("y", 400),
			FinalScore: 0.5,
		})
	}

	out := FormatAsContext(results, 1000)
	require.LessOrEqual(t, len(out), 1000)
	// Only the first couple of entries fit.
	assert.Contains(t, out, "[1. ")
	assert.NotContains(t, out, "[5. ")
}

func TestFormatAsContextDefaultBudget(t *testing.T) {
	results := []Result{{SourceType: store.SourceTypePost, Content: "short", FinalScore: 0.4}}
	out := FormatAsContext(results, 0)
	assert.Contains(t, out, "short")
}

func TestFormatAsContextUnknownTypeFallsBack(t *testing.T) {
	results := []Result{{SourceType: "mystery", Content: "c", FinalScore: 0.1}}
	out := FormatAsContext(results, 4000)
	assert.Contains(t, out, "[1. mystery]")
}
