package cli

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/config"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// options holds values given on the command line
type options struct {
	logLevel  string
	logFormat string
}

// loggingFlags returns flags that override the logging section of the config file
func loggingFlags(opts *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Sources:     cli.EnvVars("LOGSEEK_LOG_LEVEL"),
			Destination: &opts.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Sources:     cli.EnvVars("LOGSEEK_LOG_FORMAT"),
			Destination: &opts.logFormat,
		},
	}
}

// loadConfig reads the config file named by the first positional argument
// and applies command line overrides
func (opts *options) loadConfig(c *cli.Command) (*config.Config, error) {
	if c.Args().Len() == 0 {
		return nil, goerr.New("config file path is required")
	}
	path := c.Args().Get(0)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load config", goerr.V("path", path))
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// logger builds a stderr logger from flags only, for use before a config is loaded
func (opts *options) logger() *slog.Logger {
	level := opts.logLevel
	if level == "" {
		level = "info"
	}
	return logging.NewWithFormat(level, opts.logFormat, os.Stderr)
}
