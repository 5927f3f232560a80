package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

// ContextTool handles the notebook_context MCP tool.
type ContextTool struct {
	svc *analysis.Service
}

// NewContextTool creates a ContextTool.
func NewContextTool(svc *analysis.Service) *ContextTool {
	return &ContextTool{svc: svc}
}

// Definition returns the MCP tool definition for notebook_context.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_context",
		mcp.WithDescription(
			"Build a focused context slice for one cell: the cell plus the upstream cells "+
				"it depends on, rendered as readable text in execution order. Use this to load "+
				"only the relevant part of a large notebook.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .ipynb file"),
		),
		mcp.WithString("focus_cell_id",
			mcp.Required(),
			mcp.Description("Cell id to build context around"),
		),
		mcp.WithNumber("max_cells",
			mcp.Description("Upper bound on selected cells (default: 25)"),
		),
		mcp.WithBoolean("include_markdown",
			mcp.Description("Consider markdown cells when slicing (default: true)"),
		),
	)
}

// Handle processes the notebook_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	focusCellID := req.GetString("focus_cell_id", "")
	if focusCellID == "" {
		return mcp.NewToolResultError("'focus_cell_id' is required"), nil
	}

	maxCells := intArg(req, "max_cells", 25)
	includeMarkdown := boolArg(req, "include_markdown", true)

	result, err := t.svc.FocusedContext(ctx, path, focusCellID, maxCells, includeMarkdown)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context failed: %v", err)), nil
	}
	return jsonResult(result), nil
}
