package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/forcelens/forcelens/internal/core"
	apperrors "github.com/forcelens/forcelens/internal/errors"
)

// SyncRunner executes one sync round across the configured profiles.
// Scheduling is left to callers; this endpoint only exposes the trigger.
type SyncRunner interface {
	Run(ctx context.Context) (*core.SyncReport, error)
}

var syncRunner SyncRunner

// SetSyncRunner injects the runner. Called once during serve startup.
func SetSyncRunner(runner SyncRunner) {
	syncRunner = runner
}

// SyncHandler runs one sync round on demand and returns its report.
func SyncHandler(w http.ResponseWriter, r *http.Request) {
	if syncRunner == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "sync runner not initialized")
		respondWithError(w, r, envelope)
		return
	}

	report, err := syncRunner.Run(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapSyncFailed(r.Context(), err, "sync run failed"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(report)
}
