package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/elasticmcp/internal/gateway"
	"github.com/Aman-CERP/elasticmcp/internal/output"
	"github.com/Aman-CERP/elasticmcp/internal/query"
	"github.com/Aman-CERP/elasticmcp/internal/result"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode        string
	index       string
	size        int
	noHighlight bool
	jsonOutput  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an index",
		Long: `Search an index with the same query the MCP search tools run.

Modes:
  keyword   multi_match over content and file name (default)
  semantic  semantic_text query, with keyword highlights
  hybrid    keyword and semantic fused with reciprocal rank fusion`,
		Example: `  elasticmcp search "quarterly report"
  elasticmcp search "how do refunds work" --mode hybrid --size 10
  elasticmcp search invoice --index finance --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := gateway.SearchParams{
				Query: strings.Join(args, " "),
				Index: opts.index,
			}
			if cmd.Flags().Changed("size") {
				p.Size = &opts.size
			}
			if opts.noHighlight {
				highlight := false
				p.Highlight = &highlight
			}
			return runSearch(cmd.Context(), cmd, p, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(query.ModeKeyword), "Search mode: keyword, semantic, hybrid")
	cmd.Flags().StringVarP(&opts.index, "index", "i", "", "Index to search (default from config)")
	cmd.Flags().IntVarP(&opts.size, "size", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.noHighlight, "no-highlight", false, "Disable highlighting")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the result as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, p gateway.SearchParams, opts searchOptions) error {
	mode, err := query.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	a, err := openApp(slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	slog.Debug("search_started", slog.String("mode", string(mode)), slog.String("query", p.Query))
	resp, err := a.service.SearchMode(ctx, mode, p)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.jsonOutput || resp.Result == nil {
		return out.JSON(resp)
	}
	printResult(out, resp.Result)
	return nil
}

func printResult(out *output.Writer, res *result.Result) {
	out.Header(fmt.Sprintf("%d hits, showing %d", res.TotalHits, len(res.Documents)))
	if len(res.Documents) == 0 {
		out.Status("", "No matching documents.")
		return
	}

	for i, doc := range res.Documents {
		out.Newline()
		out.Statusf(fmt.Sprintf("%d.", i+1), "%s  (score %.3f)", doc.DocumentID, doc.Score)
		if label := sourceLabel(doc.Source); label != "" {
			out.Status("", label)
		}
		for _, fragment := range fragments(doc.HighlightedContent) {
			out.Fragment(fragment)
		}
	}
}

// sourceLabel names a document by its virtual path or file name.
func sourceLabel(source map[string]any) string {
	for _, path := range [][]string{{"path", "virtual"}, {"file", "filename"}} {
		if v, ok := lookup(source, path...).(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// fragments flattens highlight fields in field name order.
func fragments(highlight map[string]any) []string {
	fields := make([]string, 0, len(highlight))
	for field := range highlight {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []string
	for _, field := range fields {
		switch v := highlight[field].(type) {
		case []any:
			for _, f := range v {
				if s, ok := f.(string); ok {
					out = append(out, s)
				}
			}
		case []string:
			out = append(out, v...)
		case string:
			out = append(out, v)
		}
	}
	return out
}
