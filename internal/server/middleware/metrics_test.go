package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelens/forcelens/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	config := &telemetry.Config{
		Enabled: true,
		Emitter: collector,
	}

	sys, err := telemetry.NewSystem(config)
	require.NoError(t, err)

	originalTelemetry := observability.TelemetrySystem
	observability.TelemetrySystem = sys

	t.Cleanup(func() {
		observability.TelemetrySystem = originalTelemetry
	})

	return collector
}

func TestRequestMetrics_EmitsCounterAndDuration(t *testing.T) {
	collector := setupTelemetry(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"records":[]}`))
	})

	middleware := RequestMetrics(handler)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0,
		"expected http_requests_total metric to be emitted")
	assert.Greater(t, collector.CountMetricsByName("http_request_duration_ms"), 0,
		"expected http_request_duration_ms metric to be emitted")
	assert.Greater(t, collector.CountMetricsByName("http_response_size_bytes"), 0,
		"expected http_response_size_bytes gauge to be emitted")
}

func TestRequestMetrics_WithTelemetryDisabled(t *testing.T) {
	originalTelemetry := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	defer func() {
		observability.TelemetrySystem = originalTelemetry
	}()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	middleware := RequestMetrics(handler)

	req := httptest.NewRequest("GET", "/version", nil)
	rec := httptest.NewRecorder()

	// Should pass the request through untouched
	middleware.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestMetrics_CountsServerErrors(t *testing.T) {
	collector := setupTelemetry(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	middleware := RequestMetrics(handler)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0)
	assert.Greater(t, collector.CountMetricsByName("http_errors_total"), 0,
		"expected http_errors_total metric for a 5xx response")
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/health", "/health/*"},
		{"/health/ready", "/health/*"},
		{"/api/v1/status", "/api/*"},
		{"/api/v1/sync", "/api/*"},
		{"/version", "/version"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/favicon.ico", "/unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			assert.Equal(t, tt.expected, endpointLabel(req))
		})
	}
}
