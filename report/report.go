// Package report renders a run summary for humans.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/PeladoCollado/stress/stats"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const rule = "-----------------------------------------------------------------"

// Render writes the totals, the latency line and the status breakdown table to w.
func Render(w io.Writer, summary stats.Summary, wall time.Duration) error {
	if _, err := fmt.Fprintf(w, "%s\ntotal %d requests in %.3f seconds\n%s\n\n",
		rule, summary.Total, wall.Seconds(), latencyLine(summary.Latency)); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("statuses")
	t.AppendHeader(table.Row{"Status", "Count", "Percent"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, entry := range summary.Histogram {
		t.AppendRow(table.Row{entry.Status, entry.Count, fmt.Sprintf("%5.2f%%", entry.Percent)})
	}
	t.Render()
	return nil
}

func latencyLine(latency stats.Latency) string {
	if !latency.Valid {
		return "min: no data, max: no data, avg: no data\nP50: no data, P90: no data, P95: no data, P99: no data"
	}
	return fmt.Sprintf("min: %.3f, max: %.3f, avg: %.3f\nP50: %.3f, P90: %.3f, P95: %.3f, P99: %.3f",
		latency.Min.Seconds(),
		latency.Max.Seconds(),
		latency.Mean.Seconds(),
		latency.P50.Seconds(),
		latency.P90.Seconds(),
		latency.P95.Seconds(),
		latency.P99.Seconds())
}
