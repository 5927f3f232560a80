package jupyter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// maxMessageBytes caps incoming frames; rich display payloads can be
	// large but anything past this indicates a misbehaving gateway.
	maxMessageBytes  = 16 << 20
	handshakeTimeout = 10 * time.Second
)

// ExecError is the structured error of a failed execution.
type ExecError struct {
	Name      string   `json:"name"`
	Value     string   `json:"value"`
	Traceback []string `json:"traceback"`
}

// ExecuteResult is the combined outcome of one websocket execution:
// accumulated streams, the final result value and the error, if any.
type ExecuteResult struct {
	Status         string     `json:"status"`
	ExecutionCount *int       `json:"execution_count"`
	Stdout         string     `json:"stdout"`
	Stderr         string     `json:"stderr"`
	Result         any        `json:"result"`
	Error          *ExecError `json:"error"`
}

// ExecuteOnce runs one execute_request over a dedicated websocket
// connection and collects everything until the shell reply and the iopub
// idle status have both arrived. The connection is private to this call,
// so no correlation filtering is needed. Dial failures, broken reads and
// a missing terminal pair within timeout all wrap ErrServer.
func ExecuteOnce(ctx context.Context, baseURL, token, kernelID, code string, timeout time.Duration, userExpressions map[string]string) (*ExecuteResult, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, WebSocketURL(baseURL, kernelID, token), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: kernel websocket for kernel_id=%s: %v", ErrServer, kernelID, err)
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	request := NewExecuteRequest(code, userExpressions)
	if err := conn.WriteJSON(request); err != nil {
		return nil, fmt.Errorf("%w: send execute_request to kernel_id=%s: %v", ErrServer, kernelID, err)
	}

	var (
		stdout, stderr strings.Builder
		result         any
		execErr        ExecError
		executionCount *int
		gotReply       bool
		gotIdle        bool
	)

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetReadDeadline(deadline)

	for !(gotReply && gotIdle) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: kernel_id=%s: %v", ErrServer, kernelID, err)
		}

		frameType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: read from kernel_id=%s: %v", ErrServer, kernelID, err)
		}
		if frameType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch {
		case msg.Header.MsgType == MsgTypeStream && msg.Channel == ChannelIOPub:
			var c StreamContent
			if json.Unmarshal(msg.Content, &c) != nil {
				continue
			}
			if c.Name == "stdout" {
				stdout.WriteString(c.Text)
			} else if c.Name == "stderr" {
				stderr.WriteString(c.Text)
			}

		case msg.Header.MsgType == MsgTypeExecuteResult && msg.Channel == ChannelIOPub:
			var c ExecuteResultContent
			if json.Unmarshal(msg.Content, &c) != nil {
				continue
			}
			executionCount = c.ExecutionCount
			if text, ok := c.PlainText(); ok {
				result = text
			} else {
				result = c.Data
			}

		case msg.Header.MsgType == MsgTypeError && msg.Channel == ChannelIOPub:
			var c ErrorContent
			if json.Unmarshal(msg.Content, &c) != nil {
				continue
			}
			execErr = ExecError{Name: c.EName, Value: c.EValue, Traceback: c.Traceback}

		case msg.Header.MsgType == MsgTypeExecuteReply && msg.Channel == ChannelShell:
			gotReply = true
			var c ExecuteReplyContent
			if json.Unmarshal(msg.Content, &c) != nil {
				continue
			}
			if c.ExecutionCount != nil {
				executionCount = c.ExecutionCount
			}
			if c.Status == "error" && execErr.Name == "" {
				execErr = ExecError{Name: c.EName, Value: c.EValue, Traceback: c.Traceback}
			}
			if len(c.UserExpressions) > 0 {
				result = c.UserExpressions
			}

		case msg.Header.MsgType == MsgTypeStatus && msg.Channel == ChannelIOPub:
			var c StatusContent
			if json.Unmarshal(msg.Content, &c) != nil {
				continue
			}
			if c.ExecutionState == "idle" {
				gotIdle = true
			}
		}
	}

	out := &ExecuteResult{
		Status:         "ok",
		ExecutionCount: executionCount,
		Stdout:         stdout.String(),
		Stderr:         stderr.String(),
		Result:         result,
	}
	if execErr.Name != "" {
		out.Status = "error"
		out.Error = &execErr
	}
	return out, nil
}

// InspectExpression evaluates type and repr of an expression through
// user_expressions, with no code body, so inspection never mutates
// kernel state or its execution counter.
func InspectExpression(ctx context.Context, baseURL, token, kernelID, expression string, timeout time.Duration) (*ExecuteResult, error) {
	ue := map[string]string{
		"type": fmt.Sprintf("type(%s).__name__", expression),
		"repr": fmt.Sprintf("repr(%s)", expression),
	}
	return ExecuteOnce(ctx, baseURL, token, kernelID, "", timeout, ue)
}
