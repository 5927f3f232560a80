package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
)

// WaitTool handles the jupyter_execution_wait MCP tool.
type WaitTool struct {
	manager *execution.Manager
}

// NewWaitTool creates a WaitTool.
func NewWaitTool(manager *execution.Manager) *WaitTool {
	return &WaitTool{manager: manager}
}

// Definition returns the MCP tool definition for jupyter_execution_wait.
func (t *WaitTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execution_wait",
		mcp.WithDescription(
			"Block until an execution finishes, then return its full record: status, "+
				"outputs, error label, timestamps. If the wait budget elapses first the "+
				"execution is failed with a timeout label and that record is returned.",
		),
		mcp.WithString("execution_id",
			mcp.Required(),
			mcp.Description("Id returned by jupyter_execution_submit"),
		),
		mcp.WithNumber("timeout_s",
			mcp.Description("Seconds to wait before giving up (default: 15)"),
		),
	)
}

// Handle processes the jupyter_execution_wait tool call.
func (t *WaitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID := req.GetString("execution_id", "")
	if executionID == "" {
		return mcp.NewToolResultError("'execution_id' is required"), nil
	}
	timeout := time.Duration(floatArg(req, "timeout_s", 15.0) * float64(time.Second))

	snap, err := t.manager.Await(ctx, executionID, timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("wait failed: %v", err)), nil
	}
	return jsonResult(snap), nil
}
