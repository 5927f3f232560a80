// Package prompts implements MCP prompt handlers for notebook workflows.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// TriagePrompt handles the notebook-triage MCP prompt.
// It guides the AI through staleness analysis and a rerun of a notebook.
type TriagePrompt struct{}

// NewTriagePrompt creates a TriagePrompt.
func NewTriagePrompt() *TriagePrompt {
	return &TriagePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *TriagePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("notebook-triage",
		mcp.WithPromptDescription(
			"Triage a notebook: find cells whose results are stale or broken, "+
				"explain why, and build a minimal rerun plan to bring them up to date.",
		),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Path to the .ipynb file to triage"),
		),
		mcp.WithArgument("focus_cell_id",
			mcp.ArgumentDescription("Cell to focus the rerun plan on. Default: every stale cell"),
		),
	)
}

// Handle processes the notebook-triage prompt request.
func (p *TriagePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := ""
	if args := req.Params.Arguments; args != nil {
		path = args["path"]
	}
	if path == "" {
		return nil, fmt.Errorf("'path' argument is required")
	}

	focus := ""
	if args := req.Params.Arguments; args != nil {
		focus = args["focus_cell_id"]
	}

	planStep := "3. For each stale cell, run `notebook_rerun_plan` with that cell as focus_cell_id and merge the plans\n"
	if focus != "" {
		planStep = fmt.Sprintf("3. Run `notebook_rerun_plan` with focus_cell_id='%s'\n", focus)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Triage notebook: %s", path),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to triage the notebook at '%s'.\n\n"+
						"Please:\n"+
						"1. Run `notebook_state` with path='%s'\n"+
						"2. Summarize the cells that are stale, errored, or never ran, with the reasons\n"+
						"%s"+
						"4. Show me the plan as an ordered list of cells with a one-line reason each\n"+
						"5. If I confirm, find the notebook's kernel with `jupyter_list_sessions` and "+
						"run the planned cells in order with `jupyter_execute`, stopping at the first failure",
					path, path, planStep,
				)),
			},
		},
	}, nil
}
