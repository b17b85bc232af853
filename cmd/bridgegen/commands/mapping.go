package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/bridgegen/emit/typescript"
)

func newMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mapping",
		Short: "Print the IR to TypeScript mapping table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := pterm.TableData{{"IR", "TypeScript", "Note"}}
			for _, m := range typescript.Table {
				rows = append(rows, []string{m.IR, m.TypeScript, m.Note})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
