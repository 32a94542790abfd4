package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hearthside-dev/grist/internal/store"
)

// DefaultContextChars is the default prompt-context budget.
const DefaultContextChars = 4000

// minEntryChars is the smallest remaining budget worth starting another
// entry for; below this the rest of the results are dropped.
const minEntryChars = 100

var sourceLabels = map[store.SourceType]string{
	store.SourceTypeBusinessDoc: "Business Documentation",
	store.SourceTypePost:        "Previous Post",
	store.SourceTypeReply:       "Previous Reply",
}

// sourceLabel returns a human-readable label, falling back to the raw type.
func sourceLabel(st store.SourceType) string {
	if label, ok := sourceLabels[st]; ok {
		return label
	}
	return string(st)
}

// FormatAsContext renders results as numbered, source-labeled entries for
// an LLM prompt, keeping the total under maxChars. Entries keep result
// order; an entry that does not fit is truncated with "...", and once less
// than minEntryChars of budget remains the rest are dropped. maxChars <= 0
// uses DefaultContextChars.
func FormatAsContext(results []Result, maxChars int) string {
	if len(results) == 0 {
		return "No relevant context found."
	}
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}

	var parts []string
	charsUsed := 0

	for i, result := range results {
		header := fmt.Sprintf("[%d. %s] (relevance: %.2f)", i+1, sourceLabel(result.SourceType), result.FinalScore)
		content := result.Content

		// The 10 covers the newlines and joining overhead around the entry.
		available := maxChars - charsUsed - len(header) - 10
		if available <= minEntryChars {
			break
		}

		if len(content) > available {
			cut := available - 3
			// Back up to a rune boundary so the cut never splits a
			// multi-byte character.
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "..."
		}

		entry := header + "\n" + content + "\n"
		parts = append(parts, entry)
		charsUsed += len(entry)
	}

	return strings.Join(parts, "\n")
}
