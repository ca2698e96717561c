package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/server"
	"github.com/m-mizutani/logseek/pkg/tool"
	"github.com/m-mizutani/logseek/pkg/tool/logsearch"
	"github.com/m-mizutani/logseek/pkg/usecase/search"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const instructions = "Use search_logs to find log records by keywords (must/any/none), " +
	"an optional time_filter and a log_start_pattern for multi-line records. " +
	"Use list_log_files to see which files a search would read."

func serveAction(opts *options) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := opts.loadConfig(c)
		if err != nil {
			return err
		}

		logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		logging.SetDefault(logger)
		ctx = logging.With(ctx, logger)

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		uc := search.New(cfg)
		registry, err := tool.New(logsearch.Tools(uc)...)
		if err != nil {
			return goerr.Wrap(err, "failed to register tools")
		}

		srv := server.New(registry,
			server.WithServerInfo(cfg.Server.Name, cfg.Server.Version),
			server.WithInstructions(instructions),
		)

		logger.Info("starting logseek",
			"config", c.Args().Get(0),
			"default_root", cfg.Search.DefaultRootPath,
			"max_concurrent_files", cfg.Search.MaxConcurrentFiles,
		)
		if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
			return goerr.Wrap(err, "server stopped with error")
		}
		return nil
	}
}
