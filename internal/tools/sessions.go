package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/jupyter"
)

// ListSessionsTool handles the jupyter_list_sessions MCP tool.
type ListSessionsTool struct {
	client *jupyter.Client
}

// NewListSessionsTool creates a ListSessionsTool.
func NewListSessionsTool(client *jupyter.Client) *ListSessionsTool {
	return &ListSessionsTool{client: client}
}

// Definition returns the MCP tool definition for jupyter_list_sessions.
func (t *ListSessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_list_sessions",
		mcp.WithDescription(
			"List the active sessions on the Jupyter server, including which kernel backs "+
				"each notebook. Use this to find the kernel_id for execution tools. "+
				"Requires JUPYTER_BASE_URL (and JUPYTER_TOKEN if the server enforces one).",
		),
	)
}

// Handle processes the jupyter_list_sessions tool call.
func (t *ListSessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := t.client.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
	}
	return jsonResult(sessions), nil
}
