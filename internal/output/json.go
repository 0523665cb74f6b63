package output

import (
	"encoding/json"

	"github.com/forcelens/forcelens/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type recordSet struct {
	Object  string        `json:"object"`
	Total   int           `json:"total"`
	Records []core.Record `json:"records"`
}

// FormatRecords renders a record set as JSON.
func (f *JSONFormatter) FormatRecords(object string, records []core.Record) (string, error) {
	return f.render(recordSet{
		Object:  object,
		Total:   len(records),
		Records: records,
	})
}

// FormatReport renders a sync report as JSON.
func (f *JSONFormatter) FormatReport(report *core.SyncReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.render(report)
}

func (f *JSONFormatter) render(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
