package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forcelens/forcelens/internal/core"
	"github.com/forcelens/forcelens/internal/salesforce"
)

type stubStatusSource struct {
	snapshot StatusSnapshot
}

func (s stubStatusSource) Status() StatusSnapshot {
	return s.snapshot
}

func TestStatusHandlerWithoutSource(t *testing.T) {
	SetStatusSource(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()

	StatusHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestStatusHandlerReportsSnapshot(t *testing.T) {
	expires := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	SetStatusSource(stubStatusSource{snapshot: StatusSnapshot{
		Token: salesforce.TokenSnapshot{
			Cached:    true,
			IssuedFor: "ops@example.com",
			ExpiresAt: &expires,
		},
		Breaker: salesforce.BreakerSnapshot{
			State:               salesforce.CircuitClosed,
			ConsecutiveFailures: 2,
		},
		LastSync: &core.SyncReport{
			RunID:        "run-1",
			TotalRecords: 42,
		},
	}})
	defer SetStatusSource(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()

	StatusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp StatusSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !resp.Token.Cached {
		t.Fatal("expected cached token in snapshot")
	}

	if resp.Breaker.ConsecutiveFailures != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", resp.Breaker.ConsecutiveFailures)
	}

	if resp.LastSync == nil || resp.LastSync.TotalRecords != 42 {
		t.Fatalf("expected last sync with 42 records, got %+v", resp.LastSync)
	}
}
