package ctrunner

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/phetsims/ct-runner/types"
)

// printSummaryTable prints the results of a run-once session to the console.
func (n *ctrunner) printSummaryTable(results []types.RunResult, stats *types.RunStats, duration time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Continuous Testing Results (%s)", formatDuration(duration)))

	t.AppendHeader(table.Row{
		"Test", "Duration", "Attempts", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Attempts", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range results {
		errorMsg := ""
		if r.Error != nil {
			errorMsg = firstLine(r.Error.Error())
		}
		t.AppendRow(table.Row{
			r.Info.ID(),
			formatDuration(r.Duration),
			r.Attempts,
			getResultString(r.Status),
			errorMsg,
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", stats.Total),
		formatDuration(duration),
		"",
		getResultString(stats.Status()),
		fmt.Sprintf("%d passed, %d failed, %d skipped, %d errors",
			stats.Passed, stats.Failed, stats.Skipped, stats.Errors),
	})

	t.Render()
}

// getResultString returns a short marker for the test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusError:
		return "✗ error"
	default:
		return "✗ fail"
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// firstLine trims an error down to its first line so the table stays
// readable; the full text lives in the run log.
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
