package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
)

var ErrToolNotFound = goerr.New("tool not found")

// Registry manages the tools served to MCP clients
type Registry struct {
	tools    map[string]Tool
	allTools []Tool
	schemas  map[string]*jsonschema.Resolved
}

// New creates a new tool registry with the given tools. Tool names must be
// unique and every input schema must resolve.
func New(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:    make(map[string]Tool),
		allTools: tools,
		schemas:  make(map[string]*jsonschema.Resolved),
	}

	for _, t := range tools {
		d := t.Descriptor()
		if _, exists := r.tools[d.Name]; exists {
			return nil, goerr.New("duplicated tool name", goerr.V("name", d.Name))
		}
		r.tools[d.Name] = t

		if d.InputSchema == nil {
			continue
		}
		resolved, err := d.InputSchema.Resolve(nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve input schema", goerr.V("name", d.Name))
		}
		r.schemas[d.Name] = resolved
	}

	return r, nil
}

// Descriptors returns all tool descriptors in registration order
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.allTools))
	for _, t := range r.allTools {
		out = append(out, t.Descriptor())
	}
	return out
}

// Call validates args against the tool's schema and runs it. Only an unknown
// tool name is returned as an error; argument and execution failures become
// results with IsError set.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, goerr.Wrap(ErrToolNotFound, "tool not found", goerr.V("name", name))
	}

	logger := logging.From(ctx).With("tool", name)
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = json.RawMessage("{}")
	}

	if err := r.validate(name, args); err != nil {
		logger.Info("rejected tool arguments", "error", err)
		return ErrorResult("invalid arguments: " + err.Error()), nil
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRequest) {
			logger.Info("tool request rejected", "error", err)
			return ErrorResult(err.Error()), nil
		}
		logger.Error("tool execution failed", "error", err)
		return ErrorResult("tool execution failed: " + err.Error()), nil
	}

	return result, nil
}

func (r *Registry) validate(name string, args json.RawMessage) error {
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return goerr.Wrap(err, "arguments are not valid JSON")
	}
	if _, ok := instance.(map[string]any); !ok {
		return goerr.New("arguments must be a JSON object")
	}

	schema, ok := r.schemas[name]
	if !ok {
		return nil
	}
	if err := schema.Validate(instance); err != nil {
		return err
	}
	return nil
}
