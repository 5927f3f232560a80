package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
	"github.com/nbmcp/nbmcp/internal/state"
)

// RerunPlanTool handles the notebook_rerun_plan MCP tool.
type RerunPlanTool struct {
	svc *analysis.Service
}

// NewRerunPlanTool creates a RerunPlanTool.
func NewRerunPlanTool(svc *analysis.Service) *RerunPlanTool {
	return &RerunPlanTool{svc: svc}
}

// Definition returns the MCP tool definition for notebook_rerun_plan.
func (t *RerunPlanTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_rerun_plan",
		mcp.WithDescription(
			"Compute the minimal ordered list of cells to rerun so a focus cell sees fresh "+
				"inputs: every stale or unexecuted upstream dependency, then the focus cell "+
				"itself. Each planned cell comes with the reasons it was included.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .ipynb file"),
		),
		mcp.WithString("focus_cell_id",
			mcp.Required(),
			mcp.Description("Cell the rerun should converge on"),
		),
		mcp.WithBoolean("strip_outputs",
			mcp.Description("Drop stored cell outputs before analysis (default: true)"),
		),
		mcp.WithBoolean("include_markdown",
			mcp.Description("Include markdown cells in the analysis (default: true)"),
		),
	)
}

// Handle processes the notebook_rerun_plan tool call.
func (t *RerunPlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	focusCellID := req.GetString("focus_cell_id", "")
	if focusCellID == "" {
		return mcp.NewToolResultError("'focus_cell_id' is required"), nil
	}

	opts := analysis.Options{
		StripOutputs:    boolArg(req, "strip_outputs", true),
		IncludeMarkdown: boolArg(req, "include_markdown", true),
	}

	a, err := t.svc.Analyze(ctx, path, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rerun plan failed: %v", err)), nil
	}
	return jsonResult(state.BuildRerunPlan(a, focusCellID)), nil
}
