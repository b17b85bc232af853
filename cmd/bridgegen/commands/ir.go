package commands

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
	"github.com/teranos/bridgegen/pipeline"
)

func newIRCmd(load loader) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "ir <unit>",
		Short: "Print the normalized IR of a unit",
		Long: `Extract and normalize every unit, then print the IR of one of them.
This is what the emitter sees: resolved aliases, canonical IDs, stable order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if _, ok := cfg.Unit(args[0]); !ok {
				return errors.WithHint(errors.Newf("unknown unit %q", args[0]),
					"list units under [[units]] in bridgegen.toml")
			}
			units, err := pipeline.Load(cmd.Context(), cfg, pipeline.Options{})
			if err != nil {
				return err
			}
			for _, m := range units {
				if m.Unit == args[0] {
					return writeIR(cmd.OutOrStdout(), m, format)
				}
			}
			return errors.AssertionFailedf("unit %q was not loaded", args[0])
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}

func writeIR(w io.Writer, m *ir.IR, format string) error {
	switch format {
	case "json":
		data, err := ir.Canonical(m)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return errors.Wrap(err, "failed to indent IR")
		}
		buf.WriteByte('\n')
		_, err = w.Write(buf.Bytes())
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return errors.Wrap(err, "failed to encode IR as YAML")
		}
		return enc.Close()
	default:
		return errors.WithHint(errors.Newf("unknown format %q", format), "use --format json or --format yaml")
	}
}
