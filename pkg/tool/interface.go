package tool

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is a named operation exposed through tools/list and tools/call
type Tool interface {
	// Descriptor returns the name, description and input schema listed to clients
	Descriptor() Descriptor

	// Call runs the tool with arguments that already passed schema validation.
	// Errors wrapping model.ErrInvalidRequest are reported to the client as
	// recoverable tool errors.
	Call(ctx context.Context, args json.RawMessage) (*Result, error)
}

// Descriptor is the tools/list entry of a tool
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Content is an MCP content block. Only text blocks are produced.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the tools/call result
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

func TextResult(text string) *Result {
	return &Result{Content: []Content{{Type: "text", Text: text}}}
}

func ErrorResult(text string) *Result {
	return &Result{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}

// JSONResult encodes v as JSON into a single text block. Clients decode
// content[0].text a second time to get v back.
func JSONResult(v any) (*Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return TextResult(string(raw)), nil
}
