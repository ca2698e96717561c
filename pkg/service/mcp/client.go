package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var ErrToolFailed = goerr.New("tool returned an error result")

// Client is a session with one MCP log search server
type Client struct {
	name    string
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// ServerConfig describes how to reach a server
type ServerConfig struct {
	Name      string
	Transport string // "stdio" or "http"
	Command   []string
	URL       string
	Env       map[string]string
}

// Connect starts or dials the server described by cfg and completes the
// MCP handshake
func Connect(ctx context.Context, cfg ServerConfig) (*Client, error) {
	var transport mcp.Transport
	var err error

	switch cfg.Transport {
	case "stdio":
		transport, err = createStdioTransport(cfg)
	case "http":
		transport, err = createHTTPTransport(cfg)
	default:
		return nil, goerr.New("unsupported transport",
			goerr.V("transport", cfg.Transport),
			goerr.V("supported", []string{"stdio", "http"}))
	}

	if err != nil {
		return nil, goerr.Wrap(err, "failed to create transport",
			goerr.V("server", cfg.Name))
	}

	return ConnectTransport(ctx, cfg.Name, transport)
}

// ConnectTransport completes the MCP handshake over an existing transport
// and fetches the tool list
func ConnectTransport(ctx context.Context, name string, transport mcp.Transport) (*Client, error) {
	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "logseek-probe",
		Version: "0.1.0",
	}, nil)

	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to MCP server",
			goerr.V("server", name))
	}

	toolsResult, err := session.ListTools(ctx, nil)
	if err != nil {
		_ = session.Close()
		return nil, goerr.Wrap(err, "failed to list tools",
			goerr.V("server", name))
	}

	return &Client{
		name:    name,
		session: session,
		tools:   toolsResult.Tools,
	}, nil
}

// createStdioTransport spawns the server command, inheriting this process's environment
func createStdioTransport(cfg ServerConfig) (mcp.Transport, error) {
	if len(cfg.Command) == 0 {
		return nil, goerr.New("command is required for stdio transport")
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Stderr = os.Stderr

	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	return &mcp.CommandTransport{Command: cmd}, nil
}

func createHTTPTransport(cfg ServerConfig) (mcp.Transport, error) {
	if cfg.URL == "" {
		return nil, goerr.New("url is required for http transport")
	}

	return &mcp.StreamableClientTransport{
		Endpoint: cfg.URL,
	}, nil
}

// Tools returns the tools listed by the server at connect time
func (c *Client) Tools() []*mcp.Tool {
	return c.tools
}

// CallTool calls a tool and returns the raw result
func (c *Client) CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool",
			goerr.V("server", c.name),
			goerr.V("tool", toolName))
	}

	return result, nil
}

// SearchLogs calls search_logs and decodes the JSON page carried in its text block
func (c *Client) SearchLogs(ctx context.Context, arguments map[string]any) (*model.SearchResult, error) {
	var out model.SearchResult
	if err := c.callJSON(ctx, "search_logs", arguments, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLogFiles calls list_log_files
func (c *Client) ListLogFiles(ctx context.Context, arguments map[string]any) (*model.FileList, error) {
	var out model.FileList
	if err := c.callJSON(ctx, "list_log_files", arguments, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) callJSON(ctx context.Context, toolName string, arguments map[string]any, out any) error {
	result, err := c.CallTool(ctx, toolName, arguments)
	if err != nil {
		return err
	}

	text, err := firstText(result)
	if err != nil {
		return goerr.Wrap(err, "unexpected tool result", goerr.V("tool", toolName))
	}
	if result.IsError {
		return goerr.Wrap(ErrToolFailed, text, goerr.V("tool", toolName))
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return goerr.Wrap(err, "failed to decode tool result",
			goerr.V("tool", toolName),
			goerr.V("text", text))
	}
	return nil
}

func firstText(result *mcp.CallToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", goerr.New("tool result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return "", goerr.New("first content block is not text")
	}
	return text.Text, nil
}

// Close closes the session and, for stdio, stops the server process
func (c *Client) Close() error {
	if err := c.session.Close(); err != nil {
		return goerr.Wrap(err, "failed to close session",
			goerr.V("server", c.name))
	}
	return nil
}
