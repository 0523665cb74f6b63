package syncer

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/forcelens/forcelens/internal/core"
)

// JSONLinesSink writes each record as one JSON object per line.
// Safe for concurrent use.
type JSONLinesSink struct {
	W io.Writer

	mu sync.Mutex
}

// Apply writes the profile's records to the underlying writer.
func (s *JSONLinesSink) Apply(_ context.Context, _ core.Profile, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.W)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

// CountingSink discards records and keeps per-profile totals.
// Used when no output destination is configured.
type CountingSink struct {
	mu     sync.Mutex
	counts map[string]int
}

// Apply accumulates the record count for the profile.
func (s *CountingSink) Apply(_ context.Context, profile core.Profile, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts == nil {
		s.counts = make(map[string]int)
	}
	s.counts[profile.Name] += len(records)
	return nil
}

// Count returns the accumulated total for a profile.
func (s *CountingSink) Count(profile string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[profile]
}
