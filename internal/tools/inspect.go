package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/jupyter"
)

// InspectTool handles the jupyter_inspect MCP tool. It rides a dedicated
// one-shot connection, so it works even while the kernel's worker queue
// is busy.
type InspectTool struct {
	baseURL string
	token   string
}

// NewInspectTool creates an InspectTool.
func NewInspectTool(baseURL, token string) *InspectTool {
	return &InspectTool{baseURL: baseURL, token: token}
}

// Definition returns the MCP tool definition for jupyter_inspect.
func (t *InspectTool) Definition() mcp.Tool {
	return mcp.NewTool("jupyter_inspect",
		mcp.WithDescription(
			"Inspect an expression in a kernel's live namespace without executing any code "+
				"body: returns the value's type name and repr. Use this to peek at variables "+
				"between executions.",
		),
		mcp.WithString("kernel_id",
			mcp.Required(),
			mcp.Description("Kernel to inspect"),
		),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Python expression, e.g. a variable name"),
		),
		mcp.WithNumber("timeout_s",
			mcp.Description("Seconds to wait for the kernel (default: 10)"),
		),
	)
}

// inspectResult is the distilled inspection document.
type inspectResult struct {
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
	Repr   string `json:"repr,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Handle processes the jupyter_inspect tool call.
func (t *InspectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kernelID := req.GetString("kernel_id", "")
	if kernelID == "" {
		return mcp.NewToolResultError("'kernel_id' is required"), nil
	}
	expression := req.GetString("expression", "")
	if expression == "" {
		return mcp.NewToolResultError("'expression' is required"), nil
	}
	timeout := time.Duration(floatArg(req, "timeout_s", 10.0) * float64(time.Second))

	res, err := jupyter.InspectExpression(ctx, t.baseURL, t.token, kernelID, expression, timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	out := inspectResult{Status: res.Status}
	if res.Error != nil {
		out.Status = "error"
		out.Error = fmt.Sprintf("%s: %s", res.Error.Name, res.Error.Value)
	}

	if ue, ok := res.Result.(map[string]json.RawMessage); ok {
		var typeErr, reprErr string
		out.Type, typeErr = expressionText(ue["type"])
		out.Repr, reprErr = expressionText(ue["repr"])
		if out.Error == "" {
			if typeErr != "" {
				out.Error = typeErr
			} else if reprErr != "" {
				out.Error = reprErr
			}
		}
	}
	if out.Error != "" {
		out.Status = "error"
	}
	return jsonResult(out), nil
}

// expressionValue is one entry of an execute_reply's user_expressions.
type expressionValue struct {
	Status string                     `json:"status"`
	Data   map[string]json.RawMessage `json:"data"`
	EName  string                     `json:"ename"`
	EValue string                     `json:"evalue"`
}

// expressionText extracts the text/plain rendering of one
// user_expressions entry, or the error it raised.
func expressionText(raw json.RawMessage) (text string, errText string) {
	if len(raw) == 0 {
		return "", ""
	}
	var v expressionValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", ""
	}
	if v.Status == "error" {
		return "", fmt.Sprintf("%s: %s", v.EName, v.EValue)
	}
	if tp, ok := v.Data["text/plain"]; ok {
		_ = json.Unmarshal(tp, &text)
	}
	return unquoteRepr(text), ""
}

// unquoteRepr strips the quotes a Python repr puts around a string
// value, so type names read DataFrame rather than 'DataFrame'.
func unquoteRepr(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
