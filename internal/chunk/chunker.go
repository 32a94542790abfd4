// Package chunk splits documents into embeddable pieces.
//
// Long-form documents are split on paragraph boundaries and grouped into a
// token band, so a chunk is always a whole number of paragraphs. Posts and
// replies are short enough to stay whole and become single atomic chunks.
package chunk

import (
	"regexp"
	"strings"

	"github.com/hearthside-dev/grist/internal/store"
)

// Token estimation uses a character heuristic for English text.
const (
	CharsPerToken    = 4
	DefaultMinTokens = 250
	DefaultMaxTokens = 500
)

// Chunk is one embeddable piece of content with its metadata.
type Chunk struct {
	Content  string
	Metadata store.Metadata
}

// Options bounds the chunk size band.
type Options struct {
	MinTokens int
	MaxTokens int
}

// DefaultOptions returns the 250-500 token band.
func DefaultOptions() Options {
	return Options{MinTokens: DefaultMinTokens, MaxTokens: DefaultMaxTokens}
}

func (o Options) withDefaults() Options {
	if o.MinTokens <= 0 {
		o.MinTokens = DefaultMinTokens
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// EstimateTokens estimates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

var (
	paragraphSplit = regexp.MustCompile(`\n\n+`)
	headerPattern  = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
)

// SplitParagraphs splits content on blank lines after normalizing line
// endings. Empty paragraphs are dropped.
func SplitParagraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var paragraphs []string
	for _, para := range paragraphSplit.Split(content, -1) {
		para = strings.TrimSpace(para)
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}

// Document chunks a long-form document. Paragraphs are grouped until
// appending the next one would push the chunk past MaxTokens while the
// chunk already holds at least MinTokens; the minimum is checked against
// the chunk before the candidate paragraph, so the chunk closes and the
// paragraph starts the next one. A single oversized paragraph is never
// split.
//
// Each chunk is prefixed with "[Document: title]" and, when a #/##/###
// header has been seen, "[Section: ...]" naming the nearest header.
func Document(content, title, sourceID string, opts Options) []Chunk {
	opts = opts.withDefaults()
	maxChars := opts.MaxTokens * CharsPerToken
	minChars := opts.MinTokens * CharsPerToken

	paragraphs := SplitParagraphs(content)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	var parts []string
	chars := 0
	section := ""

	flush := func() {
		chunks = append(chunks, buildDocChunk(title, section, sourceID, parts))
		parts = nil
		chars = 0
	}

	for _, para := range paragraphs {
		if m := headerPattern.FindStringSubmatch(para); m != nil {
			section = strings.TrimSpace(m[2])
		}

		if chars+len(para) > maxChars && chars >= minChars {
			flush()
		}

		parts = append(parts, para)
		chars += len(para)
	}

	if len(parts) > 0 {
		flush()
	}

	return chunks
}

func buildDocChunk(title, section, sourceID string, paragraphs []string) Chunk {
	var parts []string
	if title != "" {
		parts = append(parts, "[Document: "+title+"]")
	}
	if section != "" {
		parts = append(parts, "[Section: "+section+"]")
	}
	parts = append(parts, strings.Join(paragraphs, "\n\n"))
	content := strings.Join(parts, "\n")

	meta := store.Metadata{}
	if sourceID != "" {
		meta.Set("source_id", store.String(sourceID))
	}
	if title != "" {
		meta.Set("title", store.String(title))
	}
	if section != "" {
		meta.Set("section", store.String(section))
	}
	meta.Set("estimated_tokens", store.Int(EstimateTokens(content)))

	return Chunk{Content: content, Metadata: meta}
}

// Post wraps a post as a single chunk. Posts are a few hundred characters,
// well inside the token band, so they are stored whole with no prefix.
func Post(content, postID string, extra store.Metadata) Chunk {
	meta := store.Metadata{}
	meta.Set("post_id", store.String(postID))
	meta.Set("estimated_tokens", store.Int(EstimateTokens(content)))
	for _, f := range extra {
		meta.Set(f.Key, f.Value)
	}
	return Chunk{Content: content, Metadata: meta}
}

// Reply wraps a reply as a single chunk, keeping the id of the post it
// answers.
func Reply(content, replyID, originalPostID string, extra store.Metadata) Chunk {
	meta := store.Metadata{}
	meta.Set("reply_id", store.String(replyID))
	if originalPostID != "" {
		meta.Set("original_post_id", store.String(originalPostID))
	}
	meta.Set("estimated_tokens", store.Int(EstimateTokens(content)))
	for _, f := range extra {
		meta.Set(f.Key, f.Value)
	}
	return Chunk{Content: content, Metadata: meta}
}
