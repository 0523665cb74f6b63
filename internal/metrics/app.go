package metrics

import (
	"time"

	"github.com/forcelens/forcelens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Upstream API metrics
	APIRequestsTotal = "app_api_requests_total"
	APIRetriesTotal  = "app_api_retries_total"

	// Sync metrics
	SyncRunsTotal    = "app_sync_runs_total"
	SyncRecordsTotal = "app_sync_records_total"
	SyncDuration     = "app_sync_duration_ms"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
)

// RecordAPIRequest records one upstream API call with its outcome kind
// ("success" or a failure classification).
func RecordAPIRequest(operation, outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		APIRequestsTotal,
		1,
		map[string]string{
			"operation": operation,
			"outcome":   outcome,
		},
	)
}

// RecordAPIRetry records one retry decision inside the resilience
// pipeline, labelled by what prompted it.
func RecordAPIRetry(reason string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		APIRetriesTotal,
		1,
		map[string]string{"reason": reason},
	)
}

// RecordSyncRun records a completed sync run.
func RecordSyncRun(success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		SyncRunsTotal,
		1,
		map[string]string{"status": status},
	)
	_ = observability.TelemetrySystem.Histogram(
		SyncDuration,
		duration,
		map[string]string{"status": status},
	)
}

// RecordSyncRecords records how many records a profile produced.
func RecordSyncRecords(profile string, count int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		SyncRecordsTotal,
		float64(count),
		map[string]string{"profile": profile},
	)
}

// RecordHealthCheck records one health check execution and its duration.
func RecordHealthCheck(name string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	labels := map[string]string{"check": name, "status": status}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, labels)
}
