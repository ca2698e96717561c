package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/jsonrpc"
	"github.com/m-mizutani/logseek/pkg/tool"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
)

// Server answers MCP requests over a newline-delimited JSON-RPC stream.
// Messages are handled one at a time in arrival order.
type Server struct {
	info         Implementation
	instructions string
	registry     *tool.Registry
	session      *Session
}

type Option func(*Server)

func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.info = Implementation{Name: name, Version: version}
	}
}

// WithInstructions sets the usage hint returned from initialize
func WithInstructions(text string) Option {
	return func(s *Server) {
		s.instructions = text
	}
}

func New(registry *tool.Registry, opts ...Option) *Server {
	s := &Server{
		info:     Implementation{Name: "logseek", Version: "0.1.0"},
		registry: registry,
		session:  newSession(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the connection state.
func (s *Server) Session() *Session {
	return s.session
}

type frame struct {
	line []byte
	err  error
}

// Serve reads frames from r and writes responses to w until r reaches EOF or
// ctx is cancelled. A message being handled when ctx is cancelled is finished
// and answered first. Only a broken input or output stream is an error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	logger := logging.From(ctx).With("session", s.session.ID)
	ctx = logging.With(ctx, logger)

	reader := jsonrpc.NewReader(r)
	writer := jsonrpc.NewWriter(w)

	frames := make(chan frame)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(frames)
		for {
			line, err := reader.Next()
			select {
			case frames <- frame{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	logger.Info("serving MCP over stdio", "server", s.info.Name, "version", s.info.Version)
	for {
		select {
		case <-ctx.Done():
			logger.Info("stop serving", "reason", ctx.Err())
			return nil

		case f := <-frames:
			if errors.Is(f.err, io.EOF) {
				logger.Info("input closed")
				return nil
			}
			if f.err != nil {
				return goerr.Wrap(f.err, "failed to read input stream")
			}

			resp := s.Handle(ctx, f.line)
			if resp == nil {
				continue
			}
			if err := writer.Write(resp); err != nil {
				return goerr.Wrap(err, "failed to write response")
			}
		}
	}
}

// Handle processes one frame and returns the response to send, or nil when
// nothing may be written, as for any notification.
func (s *Server) Handle(ctx context.Context, line []byte) *jsonrpc.Response {
	logger := logging.From(ctx)

	req, rpcErr := jsonrpc.Decode(line)
	if rpcErr != nil {
		if req != nil && req.IsNotification() {
			logger.Warn("drop malformed notification", "error", rpcErr.Message)
			return nil
		}
		logger.Warn("reject malformed message", "code", rpcErr.Code, "error", rpcErr.Message)
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		return jsonrpc.NewErrorResponse(id, rpcErr)
	}

	return s.dispatch(ctx, req)
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc.Request) (resp *jsonrpc.Response) {
	logger := logging.From(ctx).With("method", req.Method)
	if !req.IsNotification() {
		logger = logger.With("id", string(req.ID))
	}
	ctx = logging.With(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling message", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			resp = nil
			if !req.IsNotification() {
				resp = jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "internal error"))
			}
		}
	}()

	logger.Debug("received message", "state", s.session.State.String())
	result, rpcErr := s.route(ctx, req)

	if req.IsNotification() {
		if rpcErr != nil {
			logger.Debug("notification failed", "error", rpcErr.Message)
		}
		return nil
	}
	if rpcErr != nil {
		logger.Info("request failed", "code", rpcErr.Code, "error", rpcErr.Message)
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}
	return jsonrpc.NewResponse(req.ID, result)
}

func (s *Server) route(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch req.Method {
	case MethodInitialize:
		return s.initialize(ctx, req.Params)

	case MethodInitialized:
		if s.session.State == StateUninitialized {
			logging.From(ctx).Warn("initialized notification before initialize")
		} else {
			s.session.State = StateReady
		}
		return struct{}{}, nil

	case MethodPing:
		return struct{}{}, nil

	case MethodToolsList:
		if !s.session.CanServeTools() {
			return nil, errNotInitialized()
		}
		return &ListToolsResult{Tools: s.registry.Descriptors()}, nil

	case MethodToolsCall:
		if !s.session.CanServeTools() {
			return nil, errNotInitialized()
		}
		return s.callTool(ctx, req.Params)

	default:
		if strings.HasPrefix(req.Method, notificationsPrefix) {
			return struct{}{}, nil
		}
		return nil, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func errNotInitialized() *jsonrpc.Error {
	return jsonrpc.NewError(jsonrpc.CodeServerNotInitialized, "server not initialized")
}

func (s *Server) initialize(ctx context.Context, raw json.RawMessage) (any, *jsonrpc.Error) {
	var params InitializeParams
	if err := json.Unmarshal(raw, &params); err != nil || params.ProtocolVersion == "" {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid initialize params: protocolVersion is required")
	}

	s.session.ProtocolVersion = negotiateVersion(params.ProtocolVersion)
	s.session.Client = params.ClientInfo
	s.session.State = StateInitialized

	logging.From(ctx).Info("session initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"requested_protocol", params.ProtocolVersion,
		"protocol", s.session.ProtocolVersion,
	)

	return &InitializeResult{
		ProtocolVersion: s.session.ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *jsonrpc.Error) {
	var params CallToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid tools/call params")
	}
	if params.Name == "" {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid tools/call params: name is required")
	}

	result, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "unknown tool: "+params.Name)
		}
		logging.From(ctx).Error("tool call failed", "tool", params.Name, "error", err)
		return nil, jsonrpc.NewError(jsonrpc.CodeInternalError, "internal error")
	}
	return result, nil
}
