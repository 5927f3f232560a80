package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
	"github.com/nbmcp/nbmcp/internal/state"
)

// StateTool handles the notebook_state MCP tool.
type StateTool struct {
	svc *analysis.Service
}

// NewStateTool creates a StateTool.
func NewStateTool(svc *analysis.Service) *StateTool {
	return &StateTool{svc: svc}
}

// Definition returns the MCP tool definition for notebook_state.
func (t *StateTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_state",
		mcp.WithDescription(
			"Classify every cell as unexecuted, executed, or stale from the execution "+
				"counters stored in the notebook file. A cell is stale when an upstream "+
				"dependency ran more recently or never ran. No kernel is contacted.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .ipynb file"),
		),
		mcp.WithBoolean("strip_outputs",
			mcp.Description("Drop stored cell outputs before analysis (default: true)"),
		),
		mcp.WithBoolean("include_markdown",
			mcp.Description("Include markdown cells in the analysis (default: true)"),
		),
	)
}

// Handle processes the notebook_state tool call.
func (t *StateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	opts := analysis.Options{
		StripOutputs:    boolArg(req, "strip_outputs", true),
		IncludeMarkdown: boolArg(req, "include_markdown", true),
	}

	a, err := t.svc.Analyze(ctx, path, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("state failed: %v", err)), nil
	}
	return jsonResult(state.ComputeNotebookState(a)), nil
}
