package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

// ExportScriptTool handles the notebook_export_script MCP tool.
type ExportScriptTool struct {
	svc *analysis.Service
}

// NewExportScriptTool creates an ExportScriptTool.
func NewExportScriptTool(svc *analysis.Service) *ExportScriptTool {
	return &ExportScriptTool{svc: svc}
}

// Definition returns the MCP tool definition for notebook_export_script.
func (t *ExportScriptTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_export_script",
		mcp.WithDescription(
			"Export a notebook's code cells as a single Python script, ordered so that "+
				"producers come before consumers. Each cell is preceded by a marker comment "+
				"carrying its id.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .ipynb file"),
		),
		mcp.WithBoolean("include_markdown_as_comments",
			mcp.Description("Emit markdown cells as triple-quoted blocks (default: false)"),
		),
	)
}

// Handle processes the notebook_export_script tool call.
func (t *ExportScriptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	script, err := t.svc.ExportScript(ctx, path, boolArg(req, "include_markdown_as_comments", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(script), nil
}
