package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/forcelens/forcelens/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatRecords renders a record set as a table.
func (f *TableFormatter) FormatRecords(object string, records []core.Record) (string, error) {
	if len(records) == 0 {
		return fmt.Sprintf("no %s records", object), nil
	}

	columns := recordColumns(records)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}
	t.AppendHeader(header)

	for _, r := range records {
		row := make(table.Row, 0, len(columns))
		for _, col := range columns {
			row = append(row, fieldValue(r, col))
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(records))})

	return t.Render(), nil
}

// FormatReport renders a sync report as a table, one row per profile.
func (f *TableFormatter) FormatReport(report *core.SyncReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Profile", "Object", "Records", "Duration", "Status"})

	for _, outcome := range report.Outcomes {
		status := "ok"
		if outcome.Failed() {
			status = outcome.Error
		}
		t.AppendRow(table.Row{
			outcome.Profile,
			outcome.Object,
			outcome.Records,
			outcome.Duration.Round(timeRounding),
			status,
		})
	}

	t.AppendFooter(table.Row{
		"",
		"",
		report.TotalRecords,
		report.FinishedAt.Sub(report.StartedAt).Round(timeRounding),
		"",
	})

	return t.Render(), nil
}
