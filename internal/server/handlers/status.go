package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/forcelens/forcelens/internal/core"
	"github.com/forcelens/forcelens/internal/salesforce"
)

// StatusSnapshot is the operational view exposed at /api/v1/status:
// token cache state, circuit breaker state, and the last sync run.
type StatusSnapshot struct {
	Token    salesforce.TokenSnapshot   `json:"token"`
	Breaker  salesforce.BreakerSnapshot `json:"breaker"`
	LastSync *core.SyncReport           `json:"last_sync,omitempty"`
}

// StatusSource supplies the current snapshot.
type StatusSource interface {
	Status() StatusSnapshot
}

var statusSource StatusSource

// SetStatusSource injects the snapshot provider. Called once during serve startup.
func SetStatusSource(source StatusSource) {
	statusSource = source
}

// StatusHandler reports the access layer's operational state.
func StatusHandler(w http.ResponseWriter, r *http.Request) {
	if statusSource == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "status source not initialized")
		respondWithError(w, r, envelope)
		return
	}

	snapshot := statusSource.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(snapshot)
}
