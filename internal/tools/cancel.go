package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
)

// CancelTool handles the jupyter_execution_cancel MCP tool.
type CancelTool struct {
	manager *execution.Manager
}

// NewCancelTool creates a CancelTool.
func NewCancelTool(manager *execution.Manager) *CancelTool {
	return &CancelTool{manager: manager}
}

// Definition returns the MCP tool definition for jupyter_execution_cancel.
func (t *CancelTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execution_cancel",
		mcp.WithDescription(
			"Cancel a submitted execution. Queued code never reaches the kernel; code "+
				"already running on the kernel is not interrupted, only its local record "+
				"stops. Cancelling a finished execution changes nothing.",
		),
		mcp.WithString("execution_id",
			mcp.Required(),
			mcp.Description("Id returned by jupyter_execution_submit"),
		),
	)
}

// Handle processes the jupyter_execution_cancel tool call.
func (t *CancelTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID := req.GetString("execution_id", "")
	if executionID == "" {
		return mcp.NewToolResultError("'execution_id' is required"), nil
	}

	if err := t.manager.Cancel(executionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", err)), nil
	}
	status, err := t.manager.Status(executionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", err)), nil
	}
	return jsonResult(map[string]string{
		"execution_id": executionID,
		"status":       status,
	}), nil
}
