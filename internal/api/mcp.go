package api

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/answerd/answerd/internal/tools"
)

// NewMCPServer exposes the registered agent tools over MCP, so editors
// and other MCP clients can query the same document index and web
// search the chat agent uses.
func NewMCPServer(registry tools.Registry) *server.MCPServer {
	s := server.NewMCPServer(
		"answerd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("answerd: retrieval-augmented Q&A over internal documents and the public web."),
		server.WithRecovery(),
	)

	for _, t := range registry {
		s.AddTool(
			mcp.NewTool(t.Name(),
				mcp.WithDescription(t.Description()),
				mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			),
			mcpInvoke(t),
		)
	}

	return s
}

func mcpInvoke(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		out, err := t.Invoke(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("%s failed: %v", t.Name(), err)), nil
		}
		return mcpText(out), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
