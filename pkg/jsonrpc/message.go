package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const Version = "2.0"

// Standard JSON-RPC 2.0 error codes, plus the MCP "server not initialized" code.
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeServerNotInitialized = -32002
)

// Request is an incoming request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message carries no id (absent or null).
// Notifications never receive a response.
func (r *Request) IsNotification() bool {
	id := bytes.TrimSpace(r.ID)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// Response is an outgoing response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

func NewErrorResponse(id json.RawMessage, e *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: e}
}

// Decode parses one frame. On failure it returns the error to report; the
// request is nil and the response id must be null.
func Decode(line []byte) (*Request, *Error) {
	line = bytes.TrimSpace(line)
	if !json.Valid(line) {
		return nil, NewError(CodeParseError, "parse error")
	}
	if line[0] != '{' {
		return nil, NewError(CodeInvalidRequest, "invalid request: message must be a JSON object")
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, &Error{Code: CodeInvalidRequest, Message: "invalid request", Data: err.Error()}
	}
	if req.JSONRPC != Version {
		return &req, NewError(CodeInvalidRequest, `invalid request: jsonrpc must be "2.0"`)
	}
	if req.Method == "" {
		return &req, NewError(CodeInvalidRequest, "invalid request: method is required")
	}
	return &req, nil
}
