package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
)

// StatusTool handles the jupyter_execution_status MCP tool.
type StatusTool struct {
	manager *execution.Manager
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(manager *execution.Manager) *StatusTool {
	return &StatusTool{manager: manager}
}

// Definition returns the MCP tool definition for jupyter_execution_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execution_status",
		mcp.WithDescription(
			"Check the status of a submitted execution: pending, running, completed or failed.",
		),
		mcp.WithString("execution_id",
			mcp.Required(),
			mcp.Description("Id returned by jupyter_execution_submit"),
		),
	)
}

// Handle processes the jupyter_execution_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID := req.GetString("execution_id", "")
	if executionID == "" {
		return mcp.NewToolResultError("'execution_id' is required"), nil
	}

	status, err := t.manager.Status(executionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(map[string]string{
		"execution_id": executionID,
		"status":       status,
	}), nil
}
