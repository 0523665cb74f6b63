package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forcelens/forcelens/internal/core"
)

type stubSyncRunner struct {
	report *core.SyncReport
	err    error
}

func (s stubSyncRunner) Run(ctx context.Context) (*core.SyncReport, error) {
	return s.report, s.err
}

func TestSyncHandlerWithoutRunner(t *testing.T) {
	SetSyncRunner(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()

	SyncHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestSyncHandlerReturnsReport(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	SetSyncRunner(stubSyncRunner{report: &core.SyncReport{
		RunID:      "run-42",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Outcomes: []core.SyncOutcome{
			{Profile: "contacts", Object: "Contact", Records: 7},
		},
		TotalRecords: 7,
	}})
	t.Cleanup(func() { SetSyncRunner(nil) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()

	SyncHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var report core.SyncReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.RunID != "run-42" {
		t.Errorf("expected run id run-42, got %q", report.RunID)
	}
	if report.TotalRecords != 7 {
		t.Errorf("expected 7 records, got %d", report.TotalRecords)
	}
}

func TestSyncHandlerReportsFailure(t *testing.T) {
	SetSyncRunner(stubSyncRunner{err: errors.New("upstream unauthorized")})
	t.Cleanup(func() { SetSyncRunner(nil) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()

	SyncHandler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != "SYNC_FAILED" {
		t.Errorf("expected code SYNC_FAILED, got %q", resp.Error.Code)
	}
	if resp.Error.Details["wrapped_error"] != "upstream unauthorized" {
		t.Errorf("expected wrapped error detail, got %v", resp.Error.Details)
	}
}
