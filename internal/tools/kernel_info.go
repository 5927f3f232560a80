package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/jupyter"
)

// KernelInfoTool handles the jupyter_kernel_info MCP tool.
type KernelInfoTool struct {
	client *jupyter.Client
}

// NewKernelInfoTool creates a KernelInfoTool.
func NewKernelInfoTool(client *jupyter.Client) *KernelInfoTool {
	return &KernelInfoTool{client: client}
}

// Definition returns the MCP tool definition for jupyter_kernel_info.
func (t *KernelInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_kernel_info",
		mcp.WithDescription(
			"Fetch metadata for one kernel from the Jupyter server: name, execution state, "+
				"last activity, connection count.",
		),
		mcp.WithString("kernel_id",
			mcp.Required(),
			mcp.Description("Kernel id as reported by jupyter_list_sessions"),
		),
	)
}

// Handle processes the jupyter_kernel_info tool call.
func (t *KernelInfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kernelID := req.GetString("kernel_id", "")
	if kernelID == "" {
		return mcp.NewToolResultError("'kernel_id' is required"), nil
	}

	kernel, err := t.client.GetKernel(ctx, kernelID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("kernel info failed: %v", err)), nil
	}
	return jsonResult(kernel), nil
}
