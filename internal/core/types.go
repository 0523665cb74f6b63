package core

import "time"

// Record is one upstream row after mapping: the raw DTO with its
// attributes envelope dropped, plus the fields every object shares.
type Record struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	Fields    map[string]any `json:"fields,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Contact is the synchronized contact entity.
type Contact struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// SyncOutcome reports one profile's slice of a sync run.
type SyncOutcome struct {
	Profile  string        `json:"profile"`
	Object   string        `json:"object"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether the profile failed to complete.
func (o SyncOutcome) Failed() bool {
	return o.Error != ""
}

// SyncReport aggregates a full sync run.
type SyncReport struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Outcomes     []SyncOutcome `json:"outcomes"`
	TotalRecords int           `json:"total_records"`
}

// Failed reports whether any profile in the run failed.
func (r *SyncReport) Failed() bool {
	if r == nil {
		return false
	}
	for _, outcome := range r.Outcomes {
		if outcome.Failed() {
			return true
		}
	}
	return false
}
