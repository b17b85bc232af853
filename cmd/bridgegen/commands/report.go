package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/bridgegen/drift"
	"github.com/teranos/bridgegen/pipeline"
)

// renderReport prints one row per file that is not Unchanged followed by a
// summary line.
func renderReport(w io.Writer, report *pipeline.Report, showDiff bool) {
	counts := report.Counts()

	rows := pterm.TableData{{"File", "Unit", "Outcome", "Action", "Reason"}}
	for _, res := range report.Results {
		if res.Outcome == drift.Unchanged {
			continue
		}
		rows = append(rows, []string{res.Path, res.Unit, outcomeLabel(res.Outcome), action(res), res.Reason})
	}
	if len(rows) > 1 {
		table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		if err == nil {
			fmt.Fprintln(w, table)
		}
	}

	if showDiff {
		for _, res := range report.Drifted() {
			if diff := drift.Diff(res); diff != "" {
				fmt.Fprintln(w, diff)
			}
		}
	}

	summary := fmt.Sprintf("%d unchanged, %d stale, %d conflict, %d written (%s)",
		counts[drift.Unchanged], counts[drift.Stale], counts[drift.Conflict],
		report.Written(), report.Duration.Round(time.Millisecond))
	switch {
	case report.OK():
		fmt.Fprint(w, pterm.Success.Sprintln(summary))
	case report.Mode == pipeline.Check:
		fmt.Fprint(w, pterm.Error.Sprintln("Drift detected: "+summary))
	default:
		fmt.Fprint(w, pterm.Warning.Sprintln("Conflicts refused: "+summary))
	}
}

func outcomeLabel(o drift.Outcome) string {
	switch o {
	case drift.Stale:
		return pterm.Yellow(string(o))
	case drift.Conflict:
		return pterm.Red(string(o))
	default:
		return string(o)
	}
}

func action(res drift.Result) string {
	switch {
	case res.Written:
		return "written"
	case res.Removed:
		return "removed"
	case res.Outcome == drift.Conflict:
		return "refused"
	default:
		return "-"
	}
}
