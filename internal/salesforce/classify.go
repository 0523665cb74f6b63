package salesforce

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// FailureKind labels the failure class of an upstream response so retry
// logic can branch on data instead of error types.
type FailureKind string

const (
	KindAuthentication FailureKind = "authentication"
	KindRateLimited    FailureKind = "rate_limited"
	KindTransient      FailureKind = "transient"
	KindNonRetryable   FailureKind = "non_retryable"
	KindMalformed      FailureKind = "malformed"
	KindCircuitOpen    FailureKind = "circuit_open"
)

// defaultRetryAfter is used when a 429 carries no usable Retry-After hint.
const defaultRetryAfter = 60 * time.Second

// APIError is returned for any non-success upstream outcome.
//
// ErrorCode and Message are lifted from the first element of the upstream
// error envelope when the body parses; they are best-effort and may be
// empty. Body keeps the raw response bytes. Body must never include
// credentials.
type APIError struct {
	Kind       FailureKind
	StatusCode int
	ErrorCode  string
	Message    string
	RetryAfter time.Duration
	// RetryHinted records whether RetryAfter came from an actual
	// Retry-After header rather than the 60s classification default.
	// The rate-limit stage substitutes its exponential fallback when
	// no hint existed.
	RetryHinted bool
	Body        []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return "salesforce: api error"
	}
	switch {
	case e.ErrorCode != "" && e.Message != "":
		return fmt.Sprintf("salesforce: %s request failed: status %d [%s] %s", e.Kind, e.StatusCode, e.ErrorCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("salesforce: %s request failed: status %d: %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("salesforce: %s request failed: status %d", e.Kind, e.StatusCode)
	default:
		return fmt.Sprintf("salesforce: %s request failed", e.Kind)
	}
}

// KindOf extracts the failure kind from an error chain. Errors that are
// not an *APIError report KindTransient, matching how network-level
// failures are treated by the retry and breaker stages.
func KindOf(err error) FailureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Kind
	}
	return KindTransient
}

// errorEnvelope is the upstream error body shape: a JSON array of
// message/errorCode pairs, first element authoritative.
type errorEnvelope struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields,omitempty"`
}

// Classify maps a non-success response to a typed failure. It never
// fails: an unparseable body still classifies on the status code alone,
// with the envelope fields left empty.
func Classify(statusCode int, header http.Header, body []byte) *APIError {
	return classifyAt(statusCode, header, body, time.Now().UTC())
}

func classifyAt(statusCode int, header http.Header, body []byte, now time.Time) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       body,
	}
	apiErr.ErrorCode, apiErr.Message = parseEnvelope(body)

	switch {
	case statusCode == http.StatusUnauthorized:
		apiErr.Kind = KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfter, apiErr.RetryHinted = parseRetryAfter(header, now)
	case statusCode == http.StatusBadRequest:
		apiErr.Kind = KindNonRetryable
	case statusCode >= http.StatusInternalServerError:
		apiErr.Kind = KindTransient
	default:
		apiErr.Kind = KindNonRetryable
	}

	return apiErr
}

// parseEnvelope lifts errorCode/message from the first envelope element.
// Best-effort: a body that is not the expected array yields empty fields.
func parseEnvelope(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}

	var envelope []errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope) == 0 {
		return "", ""
	}

	return strings.TrimSpace(envelope[0].ErrorCode), strings.TrimSpace(envelope[0].Message)
}

// parseRetryAfter reads the Retry-After header as integer seconds or an
// HTTP-date. Absent or unparseable hints fall back to 60 seconds and
// report hinted=false.
func parseRetryAfter(header http.Header, now time.Time) (wait time.Duration, hinted bool) {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return defaultRetryAfter, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return defaultRetryAfter, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}

	return defaultRetryAfter, false
}
