package cli

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	return run(ctx, argv, os.Stdout)
}

func run(ctx context.Context, argv []string, w io.Writer) *Error {
	var opts options

	cmd := &cli.Command{
		Name:      "logseek",
		Usage:     "MCP server for searching log files over stdio",
		ArgsUsage: "<config-file>",
		Writer:    w,
		Flags:     loggingFlags(&opts),
		Action:    serveAction(&opts),
		Commands: []*cli.Command{
			validateCommand(&opts),
			probeCommand(&opts),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		opts.logger().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
