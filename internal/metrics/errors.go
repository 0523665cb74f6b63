package metrics

import (
	"strconv"

	"github.com/forcelens/forcelens/internal/observability"
)

// Error metric names
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}

// RecordError records an error with code and status
func RecordError(errorCode string, httpStatus int) {
	count(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic records a panic recovery
func RecordPanic() {
	count(PanicsTotalName, nil)
}

// RecordErrorByEndpoint records an error by endpoint
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	count(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
