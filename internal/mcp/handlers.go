package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/edwin/internal/rag"
	"github.com/ziadkadry99/edwin/internal/retriever"
)

const emptyIndexHint = "No results found. The documents may not be indexed yet. Run `edwin ingest` to index them."

// handleSearchDocuments runs a search and returns formatted results.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, errResult := parseRequest(request)
	if errResult != nil {
		return errResult, nil
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		s.logger.Error("search_documents failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(resp.Results) == 0 {
		return mcp.NewToolResultText(emptyIndexHint), nil
	}

	header := ""
	if resp.RefinedQuery != resp.Query {
		header = fmt.Sprintf("Refined query: %s\n", resp.RefinedQuery)
	}
	return mcp.NewToolResultText(header + retriever.FormatResults(resp.Results, retriever.DefaultPreviewChars)), nil
}

// handleGetContext returns the assembled grounding context.
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, errResult := parseRequest(request)
	if errResult != nil {
		return errResult, nil
	}

	block, _, err := s.searcher.Context(ctx, req)
	if err != nil {
		s.logger.Error("get_context failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("context retrieval failed: %v", err)), nil
	}
	if block == "" {
		return mcp.NewToolResultText(emptyIndexHint), nil
	}
	return mcp.NewToolResultText(block), nil
}

// parseRequest maps tool arguments onto a rag.Request. Absent optional
// arguments stay nil so the service defaults apply.
func parseRequest(request mcp.CallToolRequest) (rag.Request, *mcp.CallToolResult) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		return rag.Request{}, mcp.NewToolResultError("missing required parameter: query")
	}

	req := rag.Request{
		Query: query,
		Filters: retriever.Filters{
			Topics:   request.GetStringSlice("topics", nil),
			Entities: request.GetStringSlice("entities", nil),
		},
	}

	args := request.GetArguments()
	if _, ok := args["top_k"]; ok {
		k := request.GetInt("top_k", 0)
		if k < 0 {
			return rag.Request{}, mcp.NewToolResultError("top_k must be non-negative")
		}
		req.TopK = &k
	}
	if _, ok := args["min_score"]; ok {
		m := float32(request.GetFloat("min_score", 0))
		req.MinScore = &m
	}
	if _, ok := args["version"]; ok {
		v := request.GetInt("version", 0)
		req.Filters.Version = &v
	}
	if _, ok := args["plan"]; ok {
		p := request.GetBool("plan", true)
		req.Plan = &p
	}
	return req, nil
}
