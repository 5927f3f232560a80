package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/execution"
	"github.com/nbmcp/nbmcp/internal/jupyter"
)

// ExecuteTool handles the jupyter_execute MCP tool: submit plus wait in
// one call, returning the combined result shape.
type ExecuteTool struct {
	manager *execution.Manager
}

// NewExecuteTool creates an ExecuteTool.
func NewExecuteTool(manager *execution.Manager) *ExecuteTool {
	return &ExecuteTool{manager: manager}
}

// Definition returns the MCP tool definition for jupyter_execute.
func (t *ExecuteTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_execute",
		mcp.WithDescription(
			"Execute code on a Jupyter kernel and wait for the outcome. Returns collected "+
				"stdout/stderr, the final result value, and any exception. Executions on the "+
				"same kernel run strictly one at a time, in submission order.",
		),
		mcp.WithString("kernel_id",
			mcp.Required(),
			mcp.Description("Kernel to execute on"),
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Python code to run"),
		),
		mcp.WithNumber("timeout_s",
			mcp.Description("Seconds to wait for completion (default: 15)"),
		),
	)
}

// Handle processes the jupyter_execute tool call.
func (t *ExecuteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kernelID := req.GetString("kernel_id", "")
	if kernelID == "" {
		return mcp.NewToolResultError("'kernel_id' is required"), nil
	}
	code := req.GetString("code", "")
	if code == "" {
		return mcp.NewToolResultError("'code' is required"), nil
	}
	timeout := time.Duration(floatArg(req, "timeout_s", 15.0) * float64(time.Second))

	executionID, err := t.manager.Submit(kernelID, code, timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execute failed: %v", err)), nil
	}
	snap, err := t.manager.Await(ctx, executionID, timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execute failed: %v", err)), nil
	}
	return jsonResult(legacyFromSnapshot(snap)), nil
}

// legacyError is the exception part of the combined result.
type legacyError struct {
	Name      string   `json:"name"`
	Value     string   `json:"value"`
	Traceback []string `json:"traceback"`
}

// legacyResult is the combined execute result: one document instead of
// the event list the polling tools expose.
type legacyResult struct {
	Status         string       `json:"status"`
	ExecutionCount *int         `json:"execution_count"`
	Stdout         string       `json:"stdout"`
	Stderr         string       `json:"stderr"`
	Result         any          `json:"result"`
	Error          *legacyError `json:"error"`
}

// legacyFromSnapshot folds a terminal task snapshot into the combined
// result shape. Stream chunks are concatenated verbatim; the last
// execute_result and the last error event win.
func legacyFromSnapshot(snap execution.Snapshot) legacyResult {
	var stdout, stderr strings.Builder
	var result any
	var errObj *legacyError

	for _, out := range snap.Outputs {
		switch out.Type {
		case jupyter.MsgTypeStream:
			switch out.Name {
			case "stdout":
				stdout.WriteString(out.Text)
			case "stderr":
				stderr.WriteString(out.Text)
			}
		case jupyter.MsgTypeExecuteResult:
			var c jupyter.ExecuteResultContent
			if err := json.Unmarshal(out.Content, &c); err != nil {
				continue
			}
			if text, ok := c.PlainText(); ok {
				result = text
			} else {
				result = c.Data
			}
		case jupyter.MsgTypeError:
			var c jupyter.ErrorContent
			if err := json.Unmarshal(out.Content, &c); err != nil {
				continue
			}
			errObj = &legacyError{Name: c.EName, Value: c.EValue, Traceback: c.Traceback}
		}
	}

	if snap.Status == execution.StatusFailed && errObj == nil {
		errObj = &legacyError{Name: "ExecutionFailed", Value: snap.Error}
	}

	status := "error"
	if snap.Status == execution.StatusCompleted {
		status = "ok"
	}
	return legacyResult{
		Status: status,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Result: result,
		Error:  errObj,
	}
}
