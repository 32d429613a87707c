package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/indexer"
	"github.com/docdex/docdex/pkg/version"
)

// Limits on the search tool's result count.
const (
	defaultLimit = 8
	maxLimit     = 50
)

// Engine is the subset of the index manager the server needs.
type Engine interface {
	Search(ctx context.Context, req indexer.SearchRequest) (*indexer.SearchResponse, error)
	Open(docRef string) (*indexer.SectionView, error)
	Reindex(ctx context.Context, docsetIDs []string) ([]indexer.DocsetStatus, error)
	ListDocsets() []indexer.DocsetStatus
}

// SearchDocsInput is the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query        string   `json:"query" jsonschema:"the search query"`
	Docsets      []string `json:"docsets,omitempty" jsonschema:"restrict the search to these docset ids"`
	SourceHint   string   `json:"source_hint,omitempty" jsonschema:"docset id the caller believes is most relevant"`
	Dependencies []string `json:"dependencies,omitempty" jsonschema:"project dependency names used as routing signals"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 8"`
}

// SearchDocsOutput is the output schema for the search_docs tool.
type SearchDocsOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
	Routing map[string]string    `json:"routing" jsonschema:"why each docset was selected"`
}

// SearchResultOutput is one search hit as returned to the client.
type SearchResultOutput struct {
	DocRef      string   `json:"doc_ref" jsonschema:"opaque reference for open_doc"`
	DocsetID    string   `json:"docset_id" jsonschema:"docset the result came from"`
	Title       string   `json:"title" jsonschema:"section title"`
	HeadingPath []string `json:"heading_path" jsonschema:"heading trail from the document root"`
	URL         string   `json:"url" jsonschema:"file URL of the source document"`
	Snippet     string   `json:"snippet" jsonschema:"truncated section text"`
	CodeBlocks  []string `json:"code_blocks,omitempty" jsonschema:"first code block of the section"`
	Score       float64  `json:"score" jsonschema:"blended relevance score between 0 and 1"`
	Version     string   `json:"version,omitempty" jsonschema:"docset version"`
}

// OpenDocInput is the input schema for the open_doc tool.
type OpenDocInput struct {
	DocRef string `json:"doc_ref" jsonschema:"reference from a previous search_docs result"`
}

// OpenDocOutput is the output schema for the open_doc tool: the full
// section the reference points into.
type OpenDocOutput struct {
	DocRef      string   `json:"doc_ref"`
	DocsetID    string   `json:"docset_id"`
	Title       string   `json:"title"`
	HeadingPath []string `json:"heading_path"`
	URL         string   `json:"url"`
	Text        string   `json:"text" jsonschema:"full section text"`
	CodeBlocks  []string `json:"code_blocks"`
	Assets      []string `json:"assets" jsonschema:"docset-relative paths of images the section references"`
	Version     string   `json:"version,omitempty"`
}

// ListDocsetsInput is the (empty) input schema for list_docsets.
type ListDocsetsInput struct{}

// ListDocsetsOutput is the output schema for the list_docsets tool.
type ListDocsetsOutput struct {
	Docsets []indexer.DocsetStatus `json:"docsets" jsonschema:"registered docsets and their index state"`
}

// ReindexInput is the input schema for the reindex tool.
type ReindexInput struct {
	Docsets []string `json:"docsets,omitempty" jsonschema:"docset ids to rebuild; empty rebuilds all enabled docsets"`
}

// ReindexOutput is the output schema for the reindex tool.
type ReindexOutput struct {
	Docsets []indexer.DocsetStatus `json:"docsets" jsonschema:"per-docset rebuild outcome"`
}

// Server bridges MCP clients with the retrieval engine.
type Server struct {
	mcp    *mcp.Server
	engine Engine
	logger *slog.Logger
}

// NewServer creates an MCP server over the given engine.
func NewServer(engine Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docdex",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search_docs",
		Description: "Search local documentation sets with hybrid keyword and semantic " +
			"retrieval. Returns ranked section snippets with doc_ref handles; pass a " +
			"doc_ref to open_doc for the full section.",
	}, s.handleSearchDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "open_doc",
		Description: "Open a doc_ref from a previous search_docs result and return the " +
			"full section text with its code blocks.",
	}, s.handleOpenDoc)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "list_docsets",
		Description: "List the registered documentation sets and whether each one is " +
			"indexed and searchable.",
	}, s.handleListDocsets)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "reindex",
		Description: "Rebuild the indexes for the named docsets, or all enabled docsets " +
			"when none are given. Searches keep working against the old index during the rebuild.",
	}, s.handleReindex)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 4))
}

func (s *Server) handleSearchDocs(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	SearchDocsOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchDocsOutput{}, NewInvalidParamsError("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	start := time.Now()
	requestID := newRequestID()
	s.logger.Info("search_docs_started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", limit))

	resp, err := s.engine.Search(ctx, indexer.SearchRequest{
		Query:        input.Query,
		Docsets:      input.Docsets,
		SourceHint:   input.SourceHint,
		Dependencies: input.Dependencies,
		TopK:         limit,
	})
	if err != nil {
		s.logger.Error("search_docs_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchDocsOutput{}, MapError(err)
	}

	out := SearchDocsOutput{
		Results: make([]SearchResultOutput, 0, len(resp.Results)),
		Routing: resp.Routing.Reasons,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, SearchResultOutput{
			DocRef:      r.DocRef,
			DocsetID:    r.DocsetID,
			Title:       r.Title,
			HeadingPath: r.HeadingPath,
			URL:         r.URL,
			Snippet:     r.Snippet.Text,
			CodeBlocks:  r.Snippet.CodeBlocks,
			Score:       r.Score,
			Version:     r.Version,
		})
	}

	s.logger.Info("search_docs_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("results", len(out.Results)))
	return nil, out, nil
}

func (s *Server) handleOpenDoc(_ context.Context, _ *mcp.CallToolRequest, input OpenDocInput) (
	*mcp.CallToolResult,
	OpenDocOutput,
	error,
) {
	if strings.TrimSpace(input.DocRef) == "" {
		return nil, OpenDocOutput{}, NewInvalidParamsError("doc_ref is required")
	}

	view, err := s.engine.Open(input.DocRef)
	if err != nil {
		return nil, OpenDocOutput{}, MapError(err)
	}

	return nil, OpenDocOutput{
		DocRef:      view.DocRef,
		DocsetID:    view.DocsetID,
		Title:       view.Title,
		HeadingPath: view.HeadingPath,
		URL:         view.URL,
		Text:        view.Text,
		CodeBlocks:  view.CodeBlocks,
		Assets:      view.Assets,
		Version:     view.Version,
	}, nil
}

func (s *Server) handleListDocsets(_ context.Context, _ *mcp.CallToolRequest, _ ListDocsetsInput) (
	*mcp.CallToolResult,
	ListDocsetsOutput,
	error,
) {
	return nil, ListDocsetsOutput{Docsets: s.engine.ListDocsets()}, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *mcp.CallToolRequest, input ReindexInput) (
	*mcp.CallToolResult,
	ReindexOutput,
	error,
) {
	start := time.Now()
	requestID := newRequestID()
	s.logger.Info("reindex_started",
		slog.String("request_id", requestID),
		slog.String("docsets", strings.Join(input.Docsets, ",")))

	statuses, err := s.engine.Reindex(ctx, input.Docsets)
	if err != nil {
		s.logger.Error("reindex_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, ReindexOutput{}, MapError(err)
	}

	s.logger.Info("reindex_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("docsets", len(statuses)))
	return nil, ReindexOutput{Docsets: statuses}, nil
}

// Serve runs the server over the given transport until the context is
// canceled. Only stdio is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// newRequestID creates a short unique request id for log correlation.
func newRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
