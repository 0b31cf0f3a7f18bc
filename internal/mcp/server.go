package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/edwin/internal/rag"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Searcher is the query surface the tools call. *rag.Service satisfies it.
type Searcher interface {
	Search(ctx context.Context, req rag.Request) (*rag.Response, error)
	Context(ctx context.Context, req rag.Request) (string, *rag.Response, error)
}

// Server wraps an MCP server that exposes document search tools.
type Server struct {
	searcher Searcher
	logger   *slog.Logger
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server over searcher.
func NewServer(searcher Searcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		searcher: searcher,
		logger:   logger,
	}

	s.mcp = server.NewMCPServer(
		"edwin",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(getContextTool, s.handleGetContext)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
