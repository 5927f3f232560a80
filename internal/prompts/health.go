package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// HealthPrompt handles the kernel-health MCP prompt.
// It instructs the AI to survey the Jupyter server's sessions and kernels.
type HealthPrompt struct{}

// NewHealthPrompt creates a HealthPrompt.
func NewHealthPrompt() *HealthPrompt {
	return &HealthPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *HealthPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("kernel-health",
		mcp.WithPromptDescription(
			"Check the health of the Jupyter server's kernels. "+
				"Shows which notebooks are attached to which kernels, each kernel's "+
				"execution state, and flags anything that looks wedged.",
		),
	)
}

// Handle processes the kernel-health prompt request.
func (p *HealthPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Jupyter kernel health check",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `jupyter_list_sessions` to see what is running on the Jupyter server.\n\n" +
						"Then:\n" +
						"1. For each session's kernel, run `jupyter_kernel_info`\n" +
						"2. Show me a table: notebook path, kernel id, execution state, connections, last activity\n" +
						"3. Flag kernels that are busy with old last_activity (likely wedged)\n" +
						"4. For a wedged kernel, offer to clear our connection with `jupyter_drop_kernel` " +
						"and verify it with a small `jupyter_execute` (for example `1 + 1`)",
				),
			},
		},
	}, nil
}
