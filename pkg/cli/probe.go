package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func probeCommand(opts *options) *cli.Command {
	var (
		argsFile string
		envPairs []string
	)

	return &cli.Command{
		Name:      "probe",
		Usage:     "Start an MCP server command, list its tools and optionally run search_logs",
		ArgsUsage: "-- <command> [args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "args",
				Aliases:     []string{"a"},
				Usage:       "Path to a JSON file with search_logs arguments",
				Destination: &argsFile,
			},
			&cli.StringSliceFlag{
				Name:        "env",
				Aliases:     []string{"e"},
				Usage:       "Extra KEY=VALUE environment variable for the server process",
				Destination: &envPairs,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			command := c.Args().Slice()
			if len(command) == 0 {
				return goerr.New("server command is required")
			}

			env, err := parseEnv(envPairs)
			if err != nil {
				return err
			}

			var arguments map[string]any
			if argsFile != "" {
				raw, err := os.ReadFile(argsFile)
				if err != nil {
					return goerr.Wrap(err, "failed to read arguments file", goerr.V("path", argsFile))
				}
				if err := json.Unmarshal(raw, &arguments); err != nil {
					return goerr.Wrap(err, "arguments file must hold a JSON object", goerr.V("path", argsFile))
				}
			}

			logger := opts.logger()
			client, err := mcp.Connect(ctx, mcp.ServerConfig{
				Name:      command[0],
				Transport: "stdio",
				Command:   command,
				Env:       env,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("failed to close probe session", "error", err)
				}
			}()

			w := c.Root().Writer
			for _, t := range client.Tools() {
				fmt.Fprintf(w, "tool: %s\n", t.Name)
			}

			if arguments == nil {
				return nil
			}

			result, err := client.SearchLogs(ctx, arguments)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return goerr.Wrap(err, "failed to print search result")
			}
			return nil
		},
	}
}

func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, goerr.New("environment variable must be KEY=VALUE", goerr.V("env", pair))
		}
		env[key] = value
	}
	return env, nil
}
