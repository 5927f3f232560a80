package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
)

// OutputTool handles the jupyter_execution_output MCP tool.
type OutputTool struct {
	manager *execution.Manager
}

// NewOutputTool creates an OutputTool.
func NewOutputTool(manager *execution.Manager) *OutputTool {
	return &OutputTool{manager: manager}
}

type outputResult struct {
	ExecutionID string             `json:"execution_id"`
	Outputs     []execution.Output `json:"outputs"`
}

// Definition returns the MCP tool definition for jupyter_execution_output.
func (t *OutputTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execution_output",
		mcp.WithDescription(
			"Fetch the output events an execution has produced so far, in arrival order. "+
				"Works on running executions, so partial output is visible before completion.",
		),
		mcp.WithString("execution_id",
			mcp.Required(),
			mcp.Description("Id returned by jupyter_execution_submit"),
		),
	)
}

// Handle processes the jupyter_execution_output tool call.
func (t *OutputTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID := req.GetString("execution_id", "")
	if executionID == "" {
		return mcp.NewToolResultError("'execution_id' is required"), nil
	}

	outputs, err := t.manager.Output(executionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("output failed: %v", err)), nil
	}
	return jsonResult(outputResult{ExecutionID: executionID, Outputs: outputs}), nil
}
