package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Salesforce timestamp layout; RFC3339 is accepted as a fallback.
const upstreamTimeLayout = "2006-01-02T15:04:05.000-0700"

// RecordFromRow maps a raw query row to a Record. The attributes
// envelope the upstream attaches to every row is dropped; Id and the
// modification timestamp are lifted, everything else stays in Fields.
func RecordFromRow(object string, raw json.RawMessage) (Record, error) {
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return Record{}, fmt.Errorf("decode %s row: %w", object, err)
	}
	delete(row, "attributes")

	record := Record{
		Object: object,
		Fields: row,
	}
	record.ID, _ = row["Id"].(string)

	for _, key := range []string{"SystemModstamp", "LastModifiedDate"} {
		if value, ok := row[key].(string); ok {
			if at, ok := ParseUpstreamTime(value); ok {
				record.UpdatedAt = at
				break
			}
		}
	}

	return record, nil
}

// ContactFromRecord lifts the contact entity fields out of a mapped row.
func ContactFromRecord(record Record) Contact {
	contact := Contact{
		ID:        record.ID,
		UpdatedAt: record.UpdatedAt,
	}
	contact.FirstName = stringField(record.Fields, "FirstName")
	contact.LastName = stringField(record.Fields, "LastName")
	contact.Email = stringField(record.Fields, "Email")
	contact.Phone = stringField(record.Fields, "Phone")
	return contact
}

// ParseUpstreamTime parses an upstream timestamp, accepting the
// millisecond offset layout the API emits and plain RFC3339.
func ParseUpstreamTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if at, err := time.Parse(upstreamTimeLayout, value); err == nil {
		return at.UTC(), true
	}
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at.UTC(), true
	}
	return time.Time{}, false
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}
