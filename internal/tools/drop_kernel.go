package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
)

// DropKernelTool handles the jupyter_drop_kernel MCP tool.
type DropKernelTool struct {
	manager *execution.Manager
}

// NewDropKernelTool creates a DropKernelTool.
func NewDropKernelTool(manager *execution.Manager) *DropKernelTool {
	return &DropKernelTool{manager: manager}
}

// Definition returns the MCP tool definition for jupyter_drop_kernel.
func (t *DropKernelTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_drop_kernel",
		mcp.WithDescription(
			"Discard the connection to a kernel. Executions still queued on it fail with "+
				"kernel_worker_disconnected; the next submission dials a fresh connection. "+
				"Use this after a kernel restart or a wedged connection.",
		),
		mcp.WithString("kernel_id",
			mcp.Required(),
			mcp.Description("Kernel whose connection should be dropped"),
		),
	)
}

// Handle processes the jupyter_drop_kernel tool call.
func (t *DropKernelTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kernelID := req.GetString("kernel_id", "")
	if kernelID == "" {
		return mcp.NewToolResultError("'kernel_id' is required"), nil
	}

	t.manager.DropWorker(kernelID)
	return mcp.NewToolResultText(fmt.Sprintf("Dropped connection to kernel %s.", kernelID)), nil
}
