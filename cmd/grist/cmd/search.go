package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/search"
	"github.com/hearthside-dev/grist/internal/store"
	"github.com/hearthside-dev/grist/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK           int
	types          string
	keywordWeight  float64
	semanticWeight float64
	asContext      bool
	format         string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the store",
		Long: `Search the store with fused keyword and semantic retrieval.

Examples:
  grist search "refund policy"
  grist search "espresso grind size" --top-k 5 --types business_doc
  grist search "loyalty program" --context
  grist search "opening hours" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, root, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Maximum number of results (0 = configured default)")
	cmd.Flags().StringVarP(&opts.types, "types", "t", "", "Comma-separated source type filter (business_doc, post, reply)")
	cmd.Flags().Float64Var(&opts.keywordWeight, "keyword-weight", -1, "Override keyword fusion weight")
	cmd.Flags().Float64Var(&opts.semanticWeight, "semantic-weight", -1, "Override semantic fusion weight")
	cmd.Flags().BoolVar(&opts.asContext, "context", false, "Print results as a prompt context block")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, query string, opts searchOptions) error {
	app, err := setup(cmd.Context(), root)
	if err != nil {
		return err
	}
	defer app.Close()

	types, err := store.ParseSourceTypes(opts.types)
	if err != nil {
		return err
	}

	searchOpts := search.Options{
		TopK:        opts.topK,
		SourceTypes: types,
	}
	if opts.keywordWeight >= 0 || opts.semanticWeight >= 0 {
		weights := search.Weights{
			Keyword:  app.cfg.Search.KeywordWeight,
			Semantic: app.cfg.Search.SemanticWeight,
		}
		if opts.keywordWeight >= 0 {
			weights.Keyword = opts.keywordWeight
		}
		if opts.semanticWeight >= 0 {
			weights.Semantic = opts.semanticWeight
		}
		searchOpts.Weights = &weights
	}

	out := cmd.OutOrStdout()

	if opts.asContext {
		formatted, _, err := app.engine.RetrieveContext(cmd.Context(), query, searchOpts, app.cfg.Search.ContextMaxChars)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatted)
		return nil
	}

	results, err := app.engine.Search(cmd.Context(), query, searchOpts)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		return formatJSON(out, results)
	default:
		fmt.Fprintln(out, ui.RenderResults(results, app.styles))
		return nil
	}
}

// formatJSON outputs results in JSON format.
func formatJSON(out io.Writer, results []search.Result) error {
	type jsonResult struct {
		ID            int64          `json:"id"`
		Content       string         `json:"content"`
		SourceType    string         `json:"source_type"`
		SourceID      string         `json:"source_id,omitempty"`
		FinalScore    float64        `json:"final_score"`
		KeywordScore  float64        `json:"keyword_score"`
		SemanticScore float64        `json:"semantic_score"`
		Metadata      store.Metadata `json:"metadata"`
	}

	output := make([]jsonResult, len(results))
	for i, r := range results {
		output[i] = jsonResult{
			ID:            r.ID,
			Content:       r.Content,
			SourceType:    string(r.SourceType),
			SourceID:      r.SourceID,
			FinalScore:    r.FinalScore,
			KeywordScore:  r.KeywordScore,
			SemanticScore: r.SemanticScore,
			Metadata:      r.Metadata,
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
