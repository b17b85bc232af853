package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/bridgegen/config"
	"github.com/teranos/bridgegen/logger"
)

func newInitCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init <package>",
		Short: "Write a starter bridgegen.toml",
		Long: `Write a bridgegen.toml with default settings and one unit generated from
the given Go package. An existing file is never overwritten.

Examples:
  bridgegen init ./api
  bridgegen init example.com/app/api --config backend/bridgegen.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				path = config.FileName
			}
			cfg := config.Starter(args[0])
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			logger.Infow("Wrote starter config", "path", path, "unit", cfg.Units[0].Name)
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Wrote %s (unit %s → %s)", path, cfg.Units[0].Name, cfg.Output.Dir))
			return nil
		},
	}
}
