package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/logging"
	"github.com/ziadkadry99/edwin/internal/rag"
	"github.com/ziadkadry99/edwin/internal/retriever"
)

// mockSearcher records the last request and returns canned results.
type mockSearcher struct {
	last    rag.Request
	results []retriever.Result
	refined string
	err     error
}

func (m *mockSearcher) Search(_ context.Context, req rag.Request) (*rag.Response, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	refined := m.refined
	if refined == "" {
		refined = req.Query
	}
	return &rag.Response{Query: req.Query, RefinedQuery: refined, Filters: req.Filters, Results: m.results}, nil
}

func (m *mockSearcher) Context(ctx context.Context, req rag.Request) (string, *rag.Response, error) {
	resp, err := m.Search(ctx, req)
	if err != nil {
		return "", nil, err
	}
	var parts []string
	for _, r := range resp.Results {
		parts = append(parts, "["+r.Chunk.Source+"]: "+r.Chunk.Text)
	}
	return strings.Join(parts, "\n\n"), resp, nil
}

func sampleResults() []retriever.Result {
	return []retriever.Result{{
		Chunk: corpus.Chunk{ChunkID: "qap_2024_p3_c0", Text: "Scoring rubric.", Source: "QAP 2024.pdf", Page: 3, Version: corpus.IntPtr(2024)},
		Score: 0.8,
	}}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "empty tool result")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.Truef(t, ok, "unexpected content type %T", result.Content[0])
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	// Verify tool names and required properties.
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_documents", searchDocumentsTool, "search_documents"},
		{"get_context", getContextTool, "get_context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
			assert.Equal(t, []string{"query"}, tt.tool.InputSchema.Required)
			for _, prop := range []string{"top_k", "min_score", "topics", "entities", "version", "plan"} {
				assert.Contains(t, tt.tool.InputSchema.Properties, prop)
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	searcher := &mockSearcher{}
	srv := NewServer(searcher, logging.Discard())

	require.NotNil(t, srv)
	require.NotNil(t, srv.mcp, "MCP server not initialized")
	assert.Same(t, searcher, srv.searcher)
}

func TestHandleSearchDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		searcher := &mockSearcher{results: sampleResults(), refined: "2024 scoring"}
		srv := NewServer(searcher, logging.Discard())
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "scoring",
		}

		result, err := srv.handleSearchDocuments(ctx, req)
		require.NoError(t, err)
		require.False(t, result.IsError, "unexpected tool error: %v", result.Content)
		text := textOf(t, result)
		for _, want := range []string{"Refined query: 2024 scoring", "Found 1 result(s)", "Source: QAP 2024.pdf (page 3)", "Version: 2024"} {
			assert.Contains(t, text, want)
		}
		assert.Nil(t, searcher.last.TopK, "absent arguments stay nil")
		assert.Nil(t, searcher.last.Plan)
		assert.Nil(t, searcher.last.MinScore)
	})

	t.Run("all arguments", func(t *testing.T) {
		searcher := &mockSearcher{results: sampleResults()}
		srv := NewServer(searcher, logging.Discard())
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query":     "scoring",
			"top_k":     float64(3),
			"min_score": 0.4,
			"topics":    []any{"scoring"},
			"entities":  []any{"PHFA", "HUD"},
			"version":   float64(2024),
			"plan":      false,
		}

		_, err := srv.handleSearchDocuments(ctx, req)
		require.NoError(t, err)
		got := searcher.last
		require.NotNil(t, got.TopK)
		assert.Equal(t, 3, *got.TopK)
		require.NotNil(t, got.MinScore)
		assert.Equal(t, float32(0.4), *got.MinScore)
		require.NotNil(t, got.Plan)
		assert.False(t, *got.Plan)
		require.NotNil(t, got.Filters.Version)
		assert.Equal(t, 2024, *got.Filters.Version)
		assert.Equal(t, []string{"scoring"}, got.Filters.Topics)
		assert.Equal(t, []string{"PHFA", "HUD"}, got.Filters.Entities)
	})

	t.Run("missing query", func(t *testing.T) {
		srv := NewServer(&mockSearcher{}, logging.Discard())
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchDocuments(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.IsError, "expected error for missing query")
	})

	t.Run("negative top_k", func(t *testing.T) {
		srv := NewServer(&mockSearcher{}, logging.Discard())
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "q", "top_k": float64(-2)}

		result, _ := srv.handleSearchDocuments(ctx, req)
		require.NotNil(t, result)
		assert.True(t, result.IsError, "expected error for negative top_k")
	})

	t.Run("empty index", func(t *testing.T) {
		srv := NewServer(&mockSearcher{}, logging.Discard())
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "anything",
		}

		result, err := srv.handleSearchDocuments(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.IsError, "empty results should not be an error")
		assert.Contains(t, textOf(t, result), "edwin ingest", "expected indexing hint")
	})

	t.Run("search failure", func(t *testing.T) {
		srv := NewServer(&mockSearcher{err: errors.New("qdrant unavailable")}, logging.Discard())
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "q"}

		result, err := srv.handleSearchDocuments(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.IsError, "expected tool error")
	})
}

func TestHandleGetContext(t *testing.T) {
	ctx := context.Background()
	srv := NewServer(&mockSearcher{results: sampleResults()}, logging.Discard())

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "scoring"}

	result, err := srv.handleGetContext(ctx, req)
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected tool error: %v", result.Content)
	assert.Equal(t, "[QAP 2024.pdf]: Scoring rubric.", textOf(t, result))
}
