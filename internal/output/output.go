package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forcelens/forcelens/internal/core"
)

// timeRounding keeps durations readable in rendered output.
const timeRounding = time.Millisecond

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders query results and sync reports.
type Formatter interface {
	FormatRecords(object string, records []core.Record) (string, error)
	FormatReport(report *core.SyncReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// recordColumns derives a stable column order from a record set: Id first,
// then the union of field names sorted alphabetically.
func recordColumns(records []core.Record) []string {
	seen := map[string]bool{}
	for _, r := range records {
		for name := range r.Fields {
			seen[name] = true
		}
	}
	delete(seen, "Id")

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return append([]string{"Id"}, names...)
}

func fieldValue(r core.Record, column string) string {
	if column == "Id" {
		return r.ID
	}
	value, ok := r.Fields[column]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
