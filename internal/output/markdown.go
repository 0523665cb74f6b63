package output

import (
	"fmt"
	"strings"

	"github.com/forcelens/forcelens/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatRecords renders a record set as Markdown.
func (f *MarkdownFormatter) FormatRecords(object string, records []core.Record) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s records\n\n", escapeMarkdownCell(object)))

	if len(records) == 0 {
		sb.WriteString("No records.\n")
		return sb.String(), nil
	}

	columns := recordColumns(records)

	sb.WriteString("|")
	for _, col := range columns {
		sb.WriteString(" " + escapeMarkdownCell(col) + " |")
	}
	sb.WriteString("\n|")
	for range columns {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for _, r := range records {
		sb.WriteString("|")
		for _, col := range columns {
			sb.WriteString(" " + escapeMarkdownCell(fieldValue(r, col)) + " |")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n**Total**: %d\n", len(records)))
	return sb.String(), nil
}

// FormatReport renders a sync report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.SyncReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Sync run %s\n\n", escapeMarkdownCell(report.RunID)))
	sb.WriteString("| Profile | Object | Records | Duration | Status |\n")
	sb.WriteString("|---------|--------|---------|----------|--------|\n")

	for _, outcome := range report.Outcomes {
		status := "ok"
		if outcome.Failed() {
			status = outcome.Error
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
			escapeMarkdownCell(outcome.Profile),
			escapeMarkdownCell(outcome.Object),
			outcome.Records,
			outcome.Duration.Round(timeRounding),
			escapeMarkdownCell(status),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Total records**: %d\n", report.TotalRecords))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
