// Package commands implements the bridgegen CLI.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/bridgegen/config"
	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/logger"
)

// Exit codes
const (
	ExitOK       = 0 // generated, or nothing to do
	ExitDrift    = 1 // drift or conflicts reported
	ExitGenError = 2 // generation, configuration or IO failure
)

// ExitError carries the exit code a failed command maps to.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitGenError
}

// Describe renders err with its hints for the terminal.
func Describe(err error) string {
	msg := err.Error()
	if hint := errors.FlattenHints(err); hint != "" {
		msg += "\n  hint: " + strings.ReplaceAll(hint, "\n", "\n  hint: ")
	}
	return msg
}

// NewRootCmd builds the command tree. Every call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		verbosity  int
		jsonOutput bool
	)

	root := &cobra.Command{
		Use:   "bridgegen",
		Short: "Generate frontend bindings from Go backend types",
		Long: `bridgegen - keep the frontend's view of backend types in sync.

bridgegen reads the Go packages (or schema documents) listed in
bridgegen.toml and writes one TypeScript module per unit into the frontend,
with typed call-site bindings for exported functions. Every generated file
carries a marker so later runs can tell untouched output from manual edits.

Examples:
  bridgegen init ./api          # Write a starter bridgegen.toml
  bridgegen generate            # Regenerate, refusing to overwrite edits
  bridgegen check --diff        # Fail on drift and show what changed
  bridgegen watch               # Regenerate when backend sources change
  bridgegen ir api              # Dump the normalized IR of one unit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Initialize(jsonOutput, verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			logger.Debugw("Logger initialized", "level", logger.LevelName(verbosity), "json", jsonOutput)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to bridgegen.toml (default: search upward from the working directory)")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v, -vv)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Log as JSON")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newGenerateCmd(load),
		newCheckCmd(load),
		newWatchCmd(load),
		newIRCmd(load),
		newInitCmd(&configPath),
		newMappingCmd(),
		newVersionCmd(),
	)
	return root
}

// loader resolves the configuration for a command.
type loader func() (*config.Config, error)
