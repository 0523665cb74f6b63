package salesforce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerTripsOnFifthFailure(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	breaker := NewBreaker(30 * time.Second)
	breaker.Clock = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		breaker.OnFailure()
		require.NoError(t, breaker.Allow(), "failure %d should not trip", i+1)
	}

	breaker.OnFailure()

	err := breaker.Allow()
	require.Error(t, err)
	require.Equal(t, KindCircuitOpen, KindOf(err))

	snapshot := breaker.Snapshot()
	require.Equal(t, CircuitOpen, snapshot.State)
	require.NotNil(t, snapshot.OpenUntil)
	require.Equal(t, now.Add(30*time.Second), *snapshot.OpenUntil)
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	breaker := NewBreaker(30 * time.Second)

	for i := 0; i < 4; i++ {
		breaker.OnFailure()
	}
	breaker.OnSuccess()
	for i := 0; i < 4; i++ {
		breaker.OnFailure()
	}

	require.NoError(t, breaker.Allow())
	require.Equal(t, CircuitClosed, breaker.Snapshot().State)
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	breaker := NewBreaker(30 * time.Second)
	breaker.Clock = func() time.Time { return now }

	for i := 0; i < breakerTripThreshold; i++ {
		breaker.OnFailure()
	}
	require.Error(t, breaker.Allow())

	// One second before the cooldown boundary: still rejecting.
	now = now.Add(29 * time.Second)
	require.Error(t, breaker.Allow())

	// At the boundary exactly one trial is admitted.
	now = now.Add(time.Second)
	require.NoError(t, breaker.Allow())
	require.Equal(t, CircuitHalfOpen, breaker.Snapshot().State)
	require.Error(t, breaker.Allow(), "second caller during the trial must be rejected")

	breaker.OnSuccess()
	require.Equal(t, CircuitClosed, breaker.Snapshot().State)
	require.NoError(t, breaker.Allow())
}

func TestBreakerNeutralReleasesHalfOpenTrial(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	breaker := NewBreaker(30 * time.Second)
	breaker.Clock = func() time.Time { return now }

	for i := 0; i < breakerTripThreshold; i++ {
		breaker.OnFailure()
	}

	now = now.Add(30 * time.Second)
	require.NoError(t, breaker.Allow())
	require.Error(t, breaker.Allow(), "slot held while the trial is in flight")

	// The trial ends without a verdict on upstream health.
	breaker.OnNeutral()

	require.Equal(t, CircuitHalfOpen, breaker.Snapshot().State)
	require.NoError(t, breaker.Allow(), "released slot must admit the next probe")

	breaker.OnSuccess()
	require.Equal(t, CircuitClosed, breaker.Snapshot().State)
}

func TestBreakerNeutralWhileClosedIsNoOp(t *testing.T) {
	breaker := NewBreaker(30 * time.Second)

	breaker.OnFailure()
	breaker.OnNeutral()

	snapshot := breaker.Snapshot()
	require.Equal(t, CircuitClosed, snapshot.State)
	require.Equal(t, 1, snapshot.ConsecutiveFailures, "neutral outcomes must not touch the failure counter")
}

func TestBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	breaker := NewBreaker(30 * time.Second)
	breaker.Clock = func() time.Time { return now }

	for i := 0; i < breakerTripThreshold; i++ {
		breaker.OnFailure()
	}

	now = now.Add(30 * time.Second)
	require.NoError(t, breaker.Allow())

	breaker.OnFailure()

	snapshot := breaker.Snapshot()
	require.Equal(t, CircuitOpen, snapshot.State)
	require.NotNil(t, snapshot.OpenUntil)
	require.Equal(t, now.Add(30*time.Second), *snapshot.OpenUntil, "reopen must record a fresh cooldown")
}
