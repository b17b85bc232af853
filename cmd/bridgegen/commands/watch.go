package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/bridgegen/pipeline"
	"github.com/teranos/bridgegen/watch"
)

func newWatchCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever backend sources change",
		Long: `Generate once, then regenerate in write mode every time a Go source file
or schema document of a configured unit changes. Changes are debounced by
watch.debounce_ms. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			w, err := watch.New(cmd.Context(), cfg, pipeline.Options{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w.OnRun(func(report *pipeline.Report, err error) {
				if err != nil {
					fmt.Fprint(out, pterm.Error.Sprintln(Describe(err)))
					return
				}
				renderReport(out, report, false)
			})
			fmt.Fprint(out, pterm.Info.Sprintfln("Watching %d units, writing to %s", len(cfg.Units), cfg.OutputDir()))
			return w.Run(cmd.Context())
		},
	}
}
