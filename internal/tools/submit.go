package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
)

// SubmitTool handles the jupyter_execution_submit MCP tool.
type SubmitTool struct {
	manager *execution.Manager
}

// NewSubmitTool creates a SubmitTool.
func NewSubmitTool(manager *execution.Manager) *SubmitTool {
	return &SubmitTool{manager: manager}
}

// Definition returns the MCP tool definition for jupyter_execution_submit.
func (t *SubmitTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execution_submit",
		mcp.WithDescription(
			"Submit code to a Jupyter kernel without waiting for it to finish. Returns an "+
				"execution_id to poll with jupyter_execution_status, jupyter_execution_output "+
				"and jupyter_execution_wait. Use this for long-running code.",
		),
		mcp.WithString("kernel_id",
			mcp.Required(),
			mcp.Description("Kernel to execute on"),
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Python code to run"),
		),
		mcp.WithNumber("timeout_s",
			mcp.Description("Per-execution deadline once the code starts (default: 15)"),
		),
	)
}

// Handle processes the jupyter_execution_submit tool call.
func (t *SubmitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kernelID := req.GetString("kernel_id", "")
	if kernelID == "" {
		return mcp.NewToolResultError("'kernel_id' is required"), nil
	}
	code := req.GetString("code", "")
	if code == "" {
		return mcp.NewToolResultError("'code' is required"), nil
	}
	timeout := time.Duration(floatArg(req, "timeout_s", 15.0) * float64(time.Second))

	executionID, err := t.manager.Submit(kernelID, code, timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("submit failed: %v", err)), nil
	}
	status, err := t.manager.Status(executionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("submit failed: %v", err)), nil
	}

	return jsonResult(map[string]string{
		"execution_id": executionID,
		"status":       status,
	}), nil
}
