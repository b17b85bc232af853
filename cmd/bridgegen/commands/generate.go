package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/bridgegen/pipeline"
)

type generateFlags struct {
	check bool
	force bool
	diff  bool
	units []string
}

func newGenerateCmd(load loader) *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate frontend bindings",
		Long: `Regenerate the frontend bindings of every configured unit.

Stale files are rewritten, unchanged files are left alone and files carrying
manual edits are refused. With --check nothing is written and any drift
fails the command.

Exit status is 0 on success, 1 on drift or conflicts, 2 on generation errors.

Examples:
  bridgegen generate                  # Write every unit
  bridgegen generate --unit api       # Write one unit
  bridgegen generate --check --diff   # Verify without writing
  bridgegen generate --force          # Overwrite files edited without re-marking`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := pipeline.Write
			if flags.check {
				mode = pipeline.Check
			}
			return runGenerate(cmd, load, mode, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.check, "check", false, "Write nothing; fail on any drift")
	addRunFlags(cmd, &flags)
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite files edited without re-marking (state=edited is never overwritten)")
	return cmd
}

func newCheckCmd(load loader) *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fail if generated files drifted from the backend",
		Long: `Generate in memory and compare with the files on disk. Nothing is written.

Every drifted or conflicting file is listed; --diff shows what changed.
Exit status is 0 when everything is up to date, 1 on drift, 2 on errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, load, pipeline.Check, flags)
		},
	}
	addRunFlags(cmd, &flags)
	return cmd
}

func addRunFlags(cmd *cobra.Command, flags *generateFlags) {
	cmd.Flags().StringSliceVarP(&flags.units, "unit", "u", nil, "Restrict to the named units (repeatable)")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "Print a unified diff for every drifted file")
}

func runGenerate(cmd *cobra.Command, load loader, mode pipeline.Mode, flags generateFlags) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	report, err := pipeline.Run(cmd.Context(), cfg, pipeline.Options{
		Mode:  mode,
		Units: flags.units,
		Force: flags.force,
	})
	if err != nil {
		return err
	}
	renderReport(cmd.OutOrStdout(), report, flags.diff)
	if !report.OK() {
		return &ExitError{Code: ExitDrift, Err: report.Err()}
	}
	return nil
}
