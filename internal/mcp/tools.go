package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
	"github.com/Aman-CERP/elasticmcp/internal/gateway"
)

// SearchInput defines the input schema for the search and semantic_search tools.
// Optional fields are pointers so an explicit zero or false is kept.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"the search query"`
	Index        string `json:"index,omitempty" jsonschema:"index to search, defaults to the configured index"`
	Size         *int   `json:"size,omitempty" jsonschema:"number of documents to return, default 5"`
	Highlight    *bool  `json:"highlight,omitempty" jsonschema:"return highlighted fragments instead of full content, default true"`
	FragmentSize *int   `json:"fragment_size,omitempty" jsonschema:"characters per highlight fragment, default 600"`
	NumFragments *int   `json:"num_fragments,omitempty" jsonschema:"highlight fragments per document, default 5"`
}

// HybridSearchInput defines the input schema for the hybrid_search tool.
type HybridSearchInput struct {
	Query          string `json:"query" jsonschema:"the search query"`
	Index          string `json:"index,omitempty" jsonschema:"index to search, defaults to the configured index"`
	Size           *int   `json:"size,omitempty" jsonschema:"number of documents to return, default 5"`
	Highlight      *bool  `json:"highlight,omitempty" jsonschema:"return highlighted fragments instead of full content, default true"`
	FragmentSize   *int   `json:"fragment_size,omitempty" jsonschema:"characters per highlight fragment, default 600"`
	NumFragments   *int   `json:"num_fragments,omitempty" jsonschema:"highlight fragments per document, default 5"`
	RankWindowSize *int   `json:"rank_window_size,omitempty" jsonschema:"documents each retriever contributes to fusion, default 50"`
	RankConstant   *int   `json:"rank_constant,omitempty" jsonschema:"reciprocal rank fusion constant, default 20"`
}

// CountInput defines the input schema for the count_documents tool.
type CountInput struct {
	Index string `json:"index,omitempty" jsonschema:"index to count, defaults to the configured index"`
	Query string `json:"query,omitempty" jsonschema:"optional keyword query restricting the count"`
}

// GetDocumentInput defines the input schema for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document_id field of a search result"`
	Index      string `json:"index,omitempty" jsonschema:"index holding the document, defaults to the configured index"`
}

// NoInput is the input schema of tools without parameters.
type NoInput struct{}

func (in SearchInput) params() gateway.SearchParams {
	return gateway.SearchParams{
		Query:        in.Query,
		Index:        in.Index,
		Size:         in.Size,
		Highlight:    in.Highlight,
		FragmentSize: in.FragmentSize,
		NumFragments: in.NumFragments,
	}
}

func (in HybridSearchInput) params() gateway.SearchParams {
	return gateway.SearchParams{
		Query:          in.Query,
		Index:          in.Index,
		Size:           in.Size,
		Highlight:      in.Highlight,
		FragmentSize:   in.FragmentSize,
		NumFragments:   in.NumFragments,
		RankWindowSize: in.RankWindowSize,
		RankConstant:   in.RankConstant,
	}
}

// Tool names.
const (
	ToolSearch         = "search"
	ToolSemanticSearch = "semantic_search"
	ToolHybridSearch   = "hybrid_search"
	ToolCountDocuments = "count_documents"
	ToolListIndices    = "list_indices"
	ToolHealthCheck    = "health_check"
	ToolGetDocument    = "get_document"
	ToolServerHealth   = "server_health"
)

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolSearch,
		Description: "Keyword search over document content and file names. " +
			"Returns document_id, score, source and highlighted fragments for each hit.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolSemanticSearch,
		Description: "Semantic search on the semantic_text field, matching by meaning rather than exact terms. " +
			"With highlighting on, keyword matches on content are blended in at a lower weight.",
	}, s.handleSemanticSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolHybridSearch,
		Description: "Hybrid search fusing a keyword retriever and a semantic retriever with reciprocal rank fusion. " +
			"Best default when unsure which of search or semantic_search fits.",
	}, s.handleHybridSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCountDocuments,
		Description: "Count documents in an index, optionally only those matching a keyword query.",
	}, s.handleCount)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolListIndices,
		Description: "List all Elasticsearch indices with document counts and store sizes.",
	}, s.handleListIndices)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolHealthCheck,
		Description: "Check Elasticsearch cluster health, node and shard counts, and version.",
	}, s.handleHealthCheck)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolGetDocument,
		Description: "Fetch one document by id. Use the document_id field from search results; " +
			"file names are not document ids.",
	}, s.handleGetDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolServerHealth,
		Description: "Report whether this gateway process is up. Does not contact Elasticsearch.",
	}, s.handleServerHealth)

	s.logger.Info("MCP tools registered", slog.Int("count", 8))
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolSearch, searchAttrs(in.Query, in.Index), func(ctx context.Context) (*gateway.SearchResponse, error) {
		return s.service.Search(ctx, in.params())
	})
}

func (s *Server) handleSemanticSearch(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolSemanticSearch, searchAttrs(in.Query, in.Index), func(ctx context.Context) (*gateway.SearchResponse, error) {
		return s.service.SemanticSearch(ctx, in.params())
	})
}

func (s *Server) handleHybridSearch(ctx context.Context, req *mcp.CallToolRequest, in HybridSearchInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolHybridSearch, searchAttrs(in.Query, in.Index), func(ctx context.Context) (*gateway.SearchResponse, error) {
		return s.service.HybridSearch(ctx, in.params())
	})
}

func (s *Server) handleCount(ctx context.Context, req *mcp.CallToolRequest, in CountInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolCountDocuments, searchAttrs(in.Query, in.Index), func(ctx context.Context) (*gateway.CountResult, error) {
		return s.service.CountDocuments(ctx, in.Index, in.Query)
	})
}

func (s *Server) handleListIndices(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolListIndices, nil, s.service.ListIndices)
}

func (s *Server) handleHealthCheck(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolHealthCheck, nil, s.service.HealthCheck)
}

func (s *Server) handleGetDocument(ctx context.Context, req *mcp.CallToolRequest, in GetDocumentInput) (*mcp.CallToolResult, any, error) {
	attrs := []any{slog.String("document_id", in.DocumentID), slog.String("index", in.Index)}
	return runTool(ctx, s, req, ToolGetDocument, attrs, func(ctx context.Context) (*gateway.DocumentResult, error) {
		return s.service.GetDocument(ctx, in.DocumentID, in.Index)
	})
}

func (s *Server) handleServerHealth(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return runTool(ctx, s, req, ToolServerHealth, nil, func(context.Context) (*gateway.ServerHealth, error) {
		return s.service.ServerHealth(), nil
	})
}

// runTool wraps one tool invocation with request-scoped logging, metrics and
// the session observer. Failures come back as error results.
func runTool[Out any](ctx context.Context, s *Server, req *mcp.CallToolRequest, tool string, attrs []any, fn func(context.Context) (Out, error)) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	requestID := generateRequestID()
	done := s.metrics.ToolStarted(tool)

	s.logger.Info(tool+" started",
		append([]any{slog.String("request_id", requestID)}, attrs...)...)

	var session *mcp.ServerSession
	if req != nil {
		session = req.Session
	}
	out, err := fn(gateway.WithObserver(ctx, sessionObserver(session)))
	done(err)
	duration := time.Since(start)

	if err != nil {
		args := []any{
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
		}
		s.logger.Error(tool+" failed", append(args, gwerrors.LogAttrs(err)...)...)
		return errorResult(MapError(err)), nil, nil
	}

	s.logger.Info(tool+" completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration))
	return nil, out, nil
}

func searchAttrs(query, index string) []any {
	return []any{slog.String("query", query), slog.String("index", index)}
}
