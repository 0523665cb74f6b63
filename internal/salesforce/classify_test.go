package salesforce

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyAuthentication(t *testing.T) {
	apiErr := Classify(http.StatusUnauthorized, http.Header{}, []byte(`[{"message":"Session expired or invalid","errorCode":"INVALID_SESSION_ID"}]`))
	require.Equal(t, KindAuthentication, apiErr.Kind)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "INVALID_SESSION_ID", apiErr.ErrorCode)
	require.Equal(t, "Session expired or invalid", apiErr.Message)
}

func TestClassifyRateLimitedSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "3")

	apiErr := Classify(http.StatusTooManyRequests, header, nil)
	require.Equal(t, KindRateLimited, apiErr.Kind)
	require.Equal(t, 3*time.Second, apiErr.RetryAfter)
	require.True(t, apiErr.RetryHinted)
}

func TestClassifyRateLimitedHTTPDate(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	header := http.Header{}
	header.Set("Retry-After", now.Add(30*time.Second).Format(http.TimeFormat))

	apiErr := classifyAt(http.StatusTooManyRequests, header, nil, now)
	require.Equal(t, KindRateLimited, apiErr.Kind)
	require.Equal(t, 30*time.Second, apiErr.RetryAfter)
	require.True(t, apiErr.RetryHinted)
}

func TestClassifyRateLimitedDefaultHint(t *testing.T) {
	apiErr := Classify(http.StatusTooManyRequests, http.Header{}, nil)
	require.Equal(t, defaultRetryAfter, apiErr.RetryAfter)
	require.False(t, apiErr.RetryHinted)

	header := http.Header{}
	header.Set("Retry-After", "soon")
	apiErr = Classify(http.StatusTooManyRequests, header, nil)
	require.Equal(t, defaultRetryAfter, apiErr.RetryAfter)
	require.False(t, apiErr.RetryHinted)
}

func TestClassifyBadRequest(t *testing.T) {
	body := []byte(`[{"message":"No such column 'Emial' on entity 'Contact'","errorCode":"INVALID_FIELD","fields":[]}]`)
	apiErr := Classify(http.StatusBadRequest, http.Header{}, body)
	require.Equal(t, KindNonRetryable, apiErr.Kind)
	require.Equal(t, "INVALID_FIELD", apiErr.ErrorCode)
	require.Contains(t, apiErr.Message, "No such column")
}

func TestClassifyServerError(t *testing.T) {
	for _, status := range []int{500, 502, 503} {
		apiErr := Classify(status, http.Header{}, nil)
		require.Equal(t, KindTransient, apiErr.Kind, "status %d", status)
	}
}

func TestClassifyOtherStatusesNonRetryable(t *testing.T) {
	for _, status := range []int{403, 404, 405, 409} {
		apiErr := Classify(status, http.Header{}, nil)
		require.Equal(t, KindNonRetryable, apiErr.Kind, "status %d", status)
	}
}

func TestClassifyUnparseableEnvelope(t *testing.T) {
	apiErr := Classify(http.StatusBadRequest, http.Header{}, []byte(`<html>not json</html>`))
	require.Equal(t, KindNonRetryable, apiErr.Kind)
	require.Empty(t, apiErr.ErrorCode)
	require.Empty(t, apiErr.Message)
	require.Equal(t, []byte(`<html>not json</html>`), apiErr.Body)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindAuthentication, KindOf(&APIError{Kind: KindAuthentication}))
	require.Equal(t, KindTransient, KindOf(assertAnError))
}

var assertAnError = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
