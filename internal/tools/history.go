package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/history"
)

// HistoryTool handles the jupyter_execution_history MCP tool.
type HistoryTool struct {
	store *history.Store
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(store *history.Store) *HistoryTool {
	return &HistoryTool{store: store}
}

// Definition returns the MCP tool definition for jupyter_execution_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execution_history",
		mcp.WithDescription(
			"List recent executions recorded across server restarts: code, status, error "+
				"label and timestamps, newest first. Optionally filtered to one kernel.",
		),
		mcp.WithString("kernel_id",
			mcp.Description("Only executions on this kernel"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records (default: 20)"),
		),
	)
}

// Handle processes the jupyter_execution_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kernelID := req.GetString("kernel_id", "")
	limit := intArg(req, "limit", 20)

	records, err := t.store.Recent(kernelID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	return jsonResult(records), nil
}
