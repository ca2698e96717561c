package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/config"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func validateCommand(opts *options) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a config file and print the effective settings",
		ArgsUsage: "<config-file>",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := opts.loadConfig(c)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return goerr.Wrap(err, "failed to encode config")
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "# %s is valid\n", c.Args().Get(0))
			fmt.Fprint(w, string(out))
			fmt.Fprintln(w, "# environment overrides:")
			for _, name := range config.EnvNames() {
				fmt.Fprintf(w, "#   %s\n", name)
			}
			return nil
		},
	}
}
