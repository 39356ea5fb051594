package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/elasticmcp/internal/output"
)

// withApp runs fn against a freshly opened app, printing JSON when asked.
// fn returns the value to print as JSON and a renderer for text output.
func withApp(cmd *cobra.Command, jsonOutput bool, fn func(a *app) (any, func(*output.Writer), error)) error {
	a, err := openApp(slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	v, render, err := fn(a)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if jsonOutput || render == nil {
		return out.JSON(v)
	}
	render(out)
	return nil
}

func newCountCmd() *cobra.Command {
	var (
		index      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "count [query]",
		Short: "Count documents in an index",
		Example: `  elasticmcp count
  elasticmcp count "invoice" --index finance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return withApp(cmd, jsonOutput, func(a *app) (any, func(*output.Writer), error) {
				res, err := a.service.CountDocuments(cmd.Context(), index, q)
				if err != nil {
					return nil, nil, err
				}
				return res, func(out *output.Writer) {
					if res.Query != nil {
						out.Statusf("🔢", "%d documents in %s match %q", res.Count, res.Index, *res.Query)
						return
					}
					out.Statusf("🔢", "%d documents in %s", res.Count, res.Index)
				}, nil
			})
		},
	}

	cmd.Flags().StringVarP(&index, "index", "i", "", "Index to count (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newGetCmd() *cobra.Command {
	var index string

	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Fetch a document by id",
		Long:  `Fetch a document by id. The document is printed as JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) (any, func(*output.Writer), error) {
				doc, err := a.service.GetDocument(cmd.Context(), args[0], index)
				return doc, nil, err
			})
		},
	}

	cmd.Flags().StringVarP(&index, "index", "i", "", "Index holding the document (default from config)")

	return cmd
}

func newIndicesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "indices",
		Short: "List indices with document counts and sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, jsonOutput, func(a *app) (any, func(*output.Writer), error) {
				list, err := a.service.ListIndices(cmd.Context())
				if err != nil {
					return nil, nil, err
				}
				return list, func(out *output.Writer) {
					out.Header(fmt.Sprintf("%d indices", list.TotalIndices))
					for _, idx := range list.Indices {
						out.Field(idx.Index, fmt.Sprintf("%d docs, %s", idx.DocumentCount, idx.Size))
					}
				}, nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newHealthCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show cluster health and version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, jsonOutput, func(a *app) (any, func(*output.Writer), error) {
				h, err := a.service.HealthCheck(cmd.Context())
				if err != nil {
					return nil, nil, err
				}
				return h, func(out *output.Writer) {
					out.Header("Cluster " + h.ClusterName)
					out.Field("status", h.Status)
					out.Field("version", h.ElasticsearchVersion)
					out.Field("nodes", h.NumberOfNodes)
					out.Field("primary shards", h.ActivePrimaryShards)
					out.Field("active shards", h.ActiveShards)
					out.Field("url", h.ConnectionURL)
				}, nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cluster-wide search statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, jsonOutput, func(a *app) (any, func(*output.Writer), error) {
				st, err := a.service.SearchStats(cmd.Context())
				if err != nil {
					return nil, nil, err
				}
				return st, func(out *output.Writer) {
					out.Header("Search statistics")
					out.Field("total searches", st.TotalSearches)
					out.Field("search time", time.Duration(st.SearchTimeMS)*time.Millisecond)
					out.Field("avg per search", fmt.Sprintf("%.2fms", st.AvgSearchTimeMS))
					out.Field("in flight", st.CurrentSearches)
					out.Field("indices", len(st.Indices))
				}, nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <name>",
		Short: "Show settings, mappings and stats of an index",
		Long:  `Show settings, mappings and stats of an index. Output is JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) (any, func(*output.Writer), error) {
				info, err := a.service.IndexInfo(cmd.Context(), args[0])
				return info, nil, err
			})
		},
	}

	return cmd
}
