// Package ui renders CLI output with lipgloss styling.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hearthside-dev/grist/internal/ingest"
	"github.com/hearthside-dev/grist/internal/search"
	"github.com/hearthside-dev/grist/internal/store"
)

// snippetChars bounds the content preview per result line.
const snippetChars = 200

// RenderResults formats search results as a numbered list with scores.
func RenderResults(results []search.Result, s Styles) string {
	if len(results) == 0 {
		return s.Dim.Render("No results.")
	}

	var b strings.Builder
	for i, r := range results {
		header := fmt.Sprintf("%d. %s", i+1, sourceLine(r))
		b.WriteString(s.Header.Render(header))
		b.WriteString("  ")
		b.WriteString(s.Score.Render(fmt.Sprintf("score %.3f", r.FinalScore)))
		b.WriteString(s.Dim.Render(fmt.Sprintf(" (keyword %.2f, semantic %.2f)", r.KeywordScore, r.SemanticScore)))
		b.WriteString("\n")
		b.WriteString("   " + snippet(r.Content))
		b.WriteString("\n")
		if i < len(results)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sourceLine(r search.Result) string {
	if r.SourceID != "" {
		return fmt.Sprintf("[%s] %s", r.SourceType, r.SourceID)
	}
	return fmt.Sprintf("[%s] #%d", r.SourceType, r.ID)
}

func snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if len(flat) > snippetChars {
		flat = flat[:snippetChars-3] + "..."
	}
	return flat
}

// RenderStats formats store statistics.
func RenderStats(stats store.Stats, s Styles) string {
	var b strings.Builder
	b.WriteString(s.Header.Render("Store contents"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("total embeddings:"), stats.Total))

	types := make([]string, 0, len(stats.ByType))
	for st := range stats.ByType {
		types = append(types, string(st))
	}
	sort.Strings(types)
	for _, st := range types {
		b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render(st+":"), stats.ByType[store.SourceType(st)]))
	}
	return b.String()
}

// RenderSyncReport formats a corpus sync summary.
func RenderSyncReport(report ingest.SyncReport, s Styles) string {
	var b strings.Builder
	b.WriteString(s.Header.Render("Sync complete"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("documents processed:"), report.DocumentsProcessed))
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("chunks created:"), report.ChunksCreated))
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("chunks replaced:"), report.ChunksDeleted))
	for _, e := range report.Errors {
		b.WriteString("  " + s.Warning.Render("skipped: "+e) + "\n")
	}
	return b.String()
}

// RenderConsistency formats a store consistency report.
func RenderConsistency(report store.ConsistencyReport, s Styles) string {
	var b strings.Builder
	b.WriteString(s.Header.Render("Store consistency"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("metadata records:"), report.MetadataCount))
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("lexical entries:"), report.LexicalCount))
	b.WriteString(fmt.Sprintf("  %s %d\n", s.Label.Render("vector entries:"), report.VectorCount))

	if report.Consistent() {
		b.WriteString("  " + s.Score.Render("all structures agree") + "\n")
		return b.String()
	}
	if n := len(report.MissingLexical); n > 0 {
		b.WriteString("  " + s.Error.Render(fmt.Sprintf("%d records missing from lexical index", n)) + "\n")
	}
	if n := len(report.MissingVector); n > 0 {
		b.WriteString("  " + s.Error.Render(fmt.Sprintf("%d records missing from vector graph", n)) + "\n")
	}
	if n := len(report.OrphanLexical); n > 0 {
		b.WriteString("  " + s.Error.Render(fmt.Sprintf("%d orphaned lexical entries", n)) + "\n")
	}
	return b.String()
}

// RenderError formats an error for the terminal.
func RenderError(err error, s Styles) string {
	return s.Error.Render("error: " + err.Error())
}
