package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

// AnalyzeTool handles the notebook_analyze MCP tool.
type AnalyzeTool struct {
	svc *analysis.Service
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(svc *analysis.Service) *AnalyzeTool {
	return &AnalyzeTool{svc: svc}
}

// Definition returns the MCP tool definition for notebook_analyze.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_analyze",
		mcp.WithDescription(
			"Analyze a Jupyter notebook (.ipynb): per-cell defined/used/imported symbols, "+
				"content hashes, and the dependency edges between cells. Use this to understand "+
				"how data flows through a notebook before editing or rerunning it.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .ipynb file"),
		),
		mcp.WithBoolean("strip_outputs",
			mcp.Description("Drop stored cell outputs before analysis (default: true)"),
		),
		mcp.WithBoolean("include_markdown",
			mcp.Description("Include markdown cells in the result (default: true)"),
		),
	)
}

// Handle processes the notebook_analyze tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	opts := analysis.Options{
		StripOutputs:    boolArg(req, "strip_outputs", true),
		IncludeMarkdown: boolArg(req, "include_markdown", true),
	}

	result, err := t.svc.Analyze(ctx, path, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analyze failed: %v", err)), nil
	}
	return jsonResult(result), nil
}
