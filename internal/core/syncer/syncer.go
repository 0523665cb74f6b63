// Package syncer drives periodic record synchronization: each configured
// profile runs its query against the upstream API, maps the rows, and
// hands them to a sink. Profiles fail independently; one bad query never
// blocks the rest of the run.
package syncer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forcelens/forcelens/internal/core"
	"github.com/forcelens/forcelens/internal/metrics"
)

// Querier is the slice of the API client the syncer needs.
type Querier interface {
	Query(ctx context.Context, soql string) ([]json.RawMessage, error)
}

// Sink receives the mapped records of one successful profile run.
type Sink interface {
	Apply(ctx context.Context, profile core.Profile, records []core.Record) error
}

// Syncer runs sync rounds over a fixed profile set.
type Syncer struct {
	Client   Querier
	Sink     Sink
	Profiles []core.Profile
	Logger   *logging.Logger
	Clock    func() time.Time

	mu         sync.RWMutex
	lastReport *core.SyncReport
}

func (s *Syncer) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Run executes one sync round across all profiles and returns the report.
// A profile whose query or sink fails contributes an error outcome; its
// sink receives nothing. Context cancellation stops the round early.
func (s *Syncer) Run(ctx context.Context) (*core.SyncReport, error) {
	report := &core.SyncReport{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
	}

	for _, profile := range s.Profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := s.runProfile(ctx, profile)
		report.Outcomes = append(report.Outcomes, outcome)
		report.TotalRecords += outcome.Records

		if outcome.Failed() {
			if s.Logger != nil {
				s.Logger.Warn("profile sync failed",
					zap.String("runID", report.RunID),
					zap.String("profile", profile.Name),
					zap.String("error", outcome.Error),
				)
			}
		} else {
			if s.Logger != nil {
				s.Logger.Info("profile synced",
					zap.String("runID", report.RunID),
					zap.String("profile", profile.Name),
					zap.Int("records", outcome.Records),
					zap.Duration("duration", outcome.Duration),
				)
			}
			metrics.RecordSyncRecords(profile.Name, outcome.Records)
		}
	}

	report.FinishedAt = s.now()
	metrics.RecordSyncRun(!report.Failed(), report.FinishedAt.Sub(report.StartedAt))

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	return report, nil
}

func (s *Syncer) runProfile(ctx context.Context, profile core.Profile) core.SyncOutcome {
	outcome := core.SyncOutcome{
		Profile: profile.Name,
		Object:  profile.Object,
	}
	started := s.now()

	rows, err := s.Client.Query(ctx, profile.SOQL)
	if err != nil {
		outcome.Duration = s.now().Sub(started)
		outcome.Error = err.Error()
		return outcome
	}

	records := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		record, err := core.RecordFromRow(profile.Object, row)
		if err != nil {
			outcome.Duration = s.now().Sub(started)
			outcome.Error = err.Error()
			return outcome
		}
		records = append(records, record)
	}

	if s.Sink != nil {
		if err := s.Sink.Apply(ctx, profile, records); err != nil {
			outcome.Duration = s.now().Sub(started)
			outcome.Error = err.Error()
			return outcome
		}
	}

	outcome.Records = len(records)
	outcome.Duration = s.now().Sub(started)
	return outcome
}

// LastReport returns the most recent completed run, or nil before the first.
func (s *Syncer) LastReport() *core.SyncReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}
