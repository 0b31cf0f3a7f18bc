package mcp

import "github.com/mark3labs/mcp-go/mcp"

// queryOptions are the parameters shared by both tools.
var queryOptions = []mcp.ToolOption{
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language question about the indexed documents"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum number of chunks to return (default from config)"),
	),
	mcp.WithNumber("min_score",
		mcp.Description("Drop chunks scoring below this cosine similarity"),
	),
	mcp.WithArray("topics",
		mcp.Description("Only return chunks tagged with at least one of these topics"),
		mcp.WithStringItems(),
	),
	mcp.WithArray("entities",
		mcp.Description("Only return chunks tagged with at least one of these entities"),
		mcp.WithStringItems(),
	),
	mcp.WithNumber("version",
		mcp.Description("Only return chunks from documents of this version (year)"),
	),
	mcp.WithBoolean("plan",
		mcp.Description("Let the LLM extract filters and rewrite the query first (default from config)"),
	),
}

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	append([]mcp.ToolOption{
		mcp.WithDescription("Search the indexed documents semantically. Returns ranked chunks with source, page, version and score."),
	}, queryOptions...)...,
)

// getContextTool defines the get_context MCP tool.
var getContextTool = mcp.NewTool("get_context",
	append([]mcp.ToolOption{
		mcp.WithDescription("Retrieve the grounding context for a question: the top chunks rendered as \"[source - page N]: text\" blocks, ready to cite."),
	}, queryOptions...)...,
)
