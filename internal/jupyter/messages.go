package jupyter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the Jupyter messaging protocol version spoken here.
const ProtocolVersion = "5.3"

// Channels multiplexed over the kernel websocket.
const (
	ChannelShell = "shell"
	ChannelIOPub = "iopub"
)

// Message types this client sends or reacts to. Anything else on the
// socket is ignored.
const (
	MsgTypeExecuteRequest = "execute_request"
	MsgTypeExecuteReply   = "execute_reply"
	MsgTypeExecuteResult  = "execute_result"
	MsgTypeDisplayData    = "display_data"
	MsgTypeStream         = "stream"
	MsgTypeError          = "error"
	MsgTypeStatus         = "status"
)

// Header identifies one protocol message. MsgID doubles as the
// correlation id: replies and side effects reference it through their
// parent header.
type Header struct {
	MsgID    string `json:"msg_id"`
	Username string `json:"username"`
	Session  string `json:"session"`
	Date     string `json:"date"`
	MsgType  string `json:"msg_type"`
	Version  string `json:"version"`
}

// NewHeader mints a header for an outgoing message.
func NewHeader(msgType, session string) Header {
	return Header{
		MsgID:    uuid.NewString(),
		Username: "nbmcp",
		Session:  session,
		Date:     time.Now().UTC().Format("2006-01-02T15:04:05"),
		MsgType:  msgType,
		Version:  ProtocolVersion,
	}
}

// ExecuteRequest is the outgoing shell-channel envelope for one code
// execution.
type ExecuteRequest struct {
	Header       Header                `json:"header"`
	ParentHeader map[string]any        `json:"parent_header"`
	Metadata     map[string]any        `json:"metadata"`
	Content      ExecuteRequestContent `json:"content"`
	Channel      string                `json:"channel"`
	Buffers      []any                 `json:"buffers"`
}

// ExecuteRequestContent carries the code plus the fixed execution policy:
// nothing is written to kernel history, stdin is refused, and queued
// follow-ups abort on error.
type ExecuteRequestContent struct {
	Code            string            `json:"code"`
	Silent          bool              `json:"silent"`
	StoreHistory    bool              `json:"store_history"`
	UserExpressions map[string]string `json:"user_expressions"`
	AllowStdin      bool              `json:"allow_stdin"`
	StopOnError     bool              `json:"stop_on_error"`
}

// NewExecuteRequest builds an execute_request under a fresh session.
// userExpressions may be nil; the wire format requires an object.
func NewExecuteRequest(code string, userExpressions map[string]string) ExecuteRequest {
	if userExpressions == nil {
		userExpressions = map[string]string{}
	}
	return ExecuteRequest{
		Header:       NewHeader(MsgTypeExecuteRequest, uuid.NewString()),
		ParentHeader: map[string]any{},
		Metadata:     map[string]any{},
		Content: ExecuteRequestContent{
			Code:            code,
			Silent:          false,
			StoreHistory:    false,
			UserExpressions: userExpressions,
			AllowStdin:      false,
			StopOnError:     true,
		},
		Channel: ChannelShell,
		Buffers: []any{},
	}
}

// Message is one incoming frame. Content stays raw until the message
// type is known; ParentHeader may be empty on unsolicited messages.
type Message struct {
	Header       Header          `json:"header"`
	ParentHeader Header          `json:"parent_header"`
	Content      json.RawMessage `json:"content"`
	Channel      string          `json:"channel"`
}

// StreamContent is iopub stream output (stdout/stderr text).
type StreamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// StatusContent reports the kernel's execution state on iopub.
type StatusContent struct {
	ExecutionState string `json:"execution_state"`
}

// ExecuteResultContent is the value produced by the executed code, keyed
// by MIME type.
type ExecuteResultContent struct {
	ExecutionCount *int                       `json:"execution_count"`
	Data           map[string]json.RawMessage `json:"data"`
}

// PlainText returns the text/plain rendering when the kernel provided one.
func (c ExecuteResultContent) PlainText() (string, bool) {
	raw, ok := c.Data["text/plain"]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ErrorContent is an iopub error event.
type ErrorContent struct {
	EName     string   `json:"ename"`
	EValue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// ExecuteReplyContent is the shell-channel reply closing one request.
type ExecuteReplyContent struct {
	Status          string                     `json:"status"`
	ExecutionCount  *int                       `json:"execution_count"`
	EName           string                     `json:"ename"`
	EValue          string                     `json:"evalue"`
	Traceback       []string                   `json:"traceback"`
	UserExpressions map[string]json.RawMessage `json:"user_expressions"`
}
