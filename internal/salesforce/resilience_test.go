package salesforce

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedSend replays a fixed sequence of outcomes and counts calls.
type scriptedSend struct {
	calls   int
	results []*Result
	errs    []error
}

func (s *scriptedSend) fn() SendFunc {
	return func(ctx context.Context) (*Result, error) {
		i := s.calls
		s.calls++
		if i >= len(s.results) {
			i = len(s.results) - 1
		}
		return s.results[i], s.errs[i]
	}
}

func (s *scriptedSend) add(res *Result, err error) *scriptedSend {
	s.results = append(s.results, res)
	s.errs = append(s.errs, err)
	return s
}

func okResult() *Result {
	return &Result{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(`{}`)}
}

func statusResult(status int, header http.Header) *Result {
	if header == nil {
		header = http.Header{}
	}
	return &Result{StatusCode: status, Header: header}
}

func testPipeline(policy Policy) (*Pipeline, *[]time.Duration) {
	pipeline := NewPipeline(policy)
	sleeps := &[]time.Duration{}
	pipeline.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	pipeline.jitter = func() time.Duration { return 500 * time.Millisecond }
	return pipeline, sleeps
}

func TestPipelineRetriesTransientWithBackoff(t *testing.T) {
	pipeline, sleeps := testPipeline(Policy{MaxRetries: 3, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).
		add(statusResult(500, nil), nil).
		add(statusResult(502, nil), nil).
		add(okResult(), nil)

	res, err := pipeline.Execute(context.Background(), send.fn())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 3, send.calls)
	require.Equal(t, []time.Duration{
		time.Second + 500*time.Millisecond,
		2*time.Second + 500*time.Millisecond,
	}, *sleeps)
}

func TestPipelineExhaustsRetryBudget(t *testing.T) {
	pipeline, _ := testPipeline(Policy{MaxRetries: 2, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).add(statusResult(503, nil), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.Error(t, err)
	require.Equal(t, KindTransient, KindOf(err))
	require.Equal(t, 3, send.calls, "maxRetries=2 means three attempts total")
}

func TestPipelineRetriesNetworkFailure(t *testing.T) {
	pipeline, _ := testPipeline(Policy{MaxRetries: 1, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).
		add(nil, errors.New("dial tcp: connection refused")).
		add(okResult(), nil)

	res, err := pipeline.Execute(context.Background(), send.fn())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 2, send.calls)
}

func TestPipelineRateLimitHintedWait(t *testing.T) {
	pipeline, sleeps := testPipeline(Policy{MaxRetries: 3, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	header := http.Header{}
	header.Set("Retry-After", "3")
	send := (&scriptedSend{}).
		add(statusResult(429, header), nil).
		add(okResult(), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.NoError(t, err)
	require.Len(t, *sleeps, 1)

	// The hinted path carries no jitter: exactly the advertised delay.
	require.GreaterOrEqual(t, (*sleeps)[0], 3*time.Second)
	require.Less(t, (*sleeps)[0], 4*time.Second)
}

func TestPipelineRateLimitUnhintedFallback(t *testing.T) {
	pipeline, sleeps := testPipeline(Policy{MaxRetries: 3, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).
		add(statusResult(429, nil), nil).
		add(okResult(), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second}, *sleeps, "2^0 seconds, no jitter")
}

func TestPipelineRateLimitWaitBound(t *testing.T) {
	pipeline, sleeps := testPipeline(Policy{MaxRetries: 10, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).add(statusResult(429, nil), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.Error(t, err)
	require.Equal(t, KindRateLimited, KindOf(err))
	require.Equal(t, maxRateLimitWaits+1, send.calls)

	// Unhinted waits escalate on the rate-limit stage's own counter.
	require.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
	}, *sleeps)
}

func TestPipelineRateLimitDoesNotFeedBreaker(t *testing.T) {
	pipeline, _ := testPipeline(Policy{MaxRetries: 10, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).add(statusResult(429, nil), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.Error(t, err)
	require.Equal(t, 0, pipeline.Breaker().Snapshot().ConsecutiveFailures)
}

func TestPipelineNonRetryableNoRetryNoBreaker(t *testing.T) {
	pipeline, sleeps := testPipeline(Policy{MaxRetries: 5, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).add(statusResult(400, nil), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.Error(t, err)
	require.Equal(t, KindNonRetryable, KindOf(err))
	require.Equal(t, 1, send.calls)
	require.Empty(t, *sleeps)
	require.Equal(t, 0, pipeline.Breaker().Snapshot().ConsecutiveFailures)
}

func TestPipelineAuthenticationPropagatesImmediately(t *testing.T) {
	pipeline, _ := testPipeline(Policy{MaxRetries: 5, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	send := (&scriptedSend{}).add(statusResult(401, nil), nil)

	_, err := pipeline.Execute(context.Background(), send.fn())
	require.Error(t, err)
	require.Equal(t, KindAuthentication, KindOf(err))
	require.Equal(t, 1, send.calls)
	require.Equal(t, 0, pipeline.Breaker().Snapshot().ConsecutiveFailures)
}

func TestPipelineBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	pipeline, _ := testPipeline(Policy{MaxRetries: 0, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	pipeline.Breaker().Clock = func() time.Time { return now }

	failing := (&scriptedSend{}).add(statusResult(500, nil), nil)
	for i := 0; i < breakerTripThreshold; i++ {
		_, err := pipeline.Execute(context.Background(), failing.fn())
		require.Error(t, err)
	}
	require.Equal(t, breakerTripThreshold, failing.calls)

	// Open: rejected before the transport is touched.
	blocked := (&scriptedSend{}).add(okResult(), nil)
	_, err := pipeline.Execute(context.Background(), blocked.fn())
	require.Error(t, err)
	require.Equal(t, KindCircuitOpen, KindOf(err))
	require.Equal(t, 0, blocked.calls)

	// After the cooldown the half-open trial goes through and closes.
	now = now.Add(30 * time.Second)
	trial := (&scriptedSend{}).add(okResult(), nil)
	res, err := pipeline.Execute(context.Background(), trial.fn())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, trial.calls)
	require.Equal(t, CircuitClosed, pipeline.Breaker().Snapshot().State)
}

func TestPipelineCancelledHalfOpenTrialAdmitsLaterProbe(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	pipeline, _ := testPipeline(Policy{MaxRetries: 0, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	pipeline.Breaker().Clock = func() time.Time { return now }

	failing := (&scriptedSend{}).add(statusResult(500, nil), nil)
	for i := 0; i < breakerTripThreshold; i++ {
		_, err := pipeline.Execute(context.Background(), failing.fn())
		require.Error(t, err)
	}
	require.Equal(t, CircuitOpen, pipeline.Breaker().Snapshot().State)

	// Cooldown elapses; the admitted trial is cancelled mid-send.
	now = now.Add(31 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	abandoned := 0
	_, err := pipeline.Execute(ctx, func(ctx context.Context) (*Result, error) {
		abandoned++
		cancel()
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, abandoned)

	// The abandoned trial must not hold the slot: the next call is
	// admitted as a fresh probe and can close the circuit.
	now = now.Add(time.Minute)
	trial := (&scriptedSend{}).add(okResult(), nil)
	res, err := pipeline.Execute(context.Background(), trial.fn())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, trial.calls)
	require.Equal(t, CircuitClosed, pipeline.Breaker().Snapshot().State)
}

func TestPipelineRateLimitedHalfOpenTrialAdmitsRetry(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	pipeline, sleeps := testPipeline(Policy{MaxRetries: 0, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	pipeline.Breaker().Clock = func() time.Time { return now }

	failing := (&scriptedSend{}).add(statusResult(500, nil), nil)
	for i := 0; i < breakerTripThreshold; i++ {
		_, err := pipeline.Execute(context.Background(), failing.fn())
		require.Error(t, err)
	}

	// The trial answers 429: a pacing signal, not a verdict. The wait
	// runs and the follow-up probe inside the same call must be
	// admitted rather than rejected by a held trial slot.
	now = now.Add(31 * time.Second)
	send := (&scriptedSend{}).
		add(statusResult(429, nil), nil).
		add(okResult(), nil)
	res, err := pipeline.Execute(context.Background(), send.fn())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 2, send.calls)
	require.Len(t, *sleeps, 1)
	require.Equal(t, CircuitClosed, pipeline.Breaker().Snapshot().State)
}

func TestPipelineCancelledContext(t *testing.T) {
	pipeline := NewPipeline(Policy{MaxRetries: 3, BreakerCooldown: 30 * time.Second, BaseBackoff: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	send := (&scriptedSend{}).add(okResult(), nil)
	_, err := pipeline.Execute(ctx, send.fn())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, send.calls)
}

func TestPipelineCancellationDuringBackoff(t *testing.T) {
	pipeline := NewPipeline(Policy{MaxRetries: 3, BreakerCooldown: 30 * time.Second, BaseBackoff: 10 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	send := (&scriptedSend{}).add(statusResult(500, nil), nil)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := pipeline.Execute(ctx, send.fn())
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 5*time.Second, "cancellation must abort the backoff sleep promptly")
}

func TestSleepContextZeroDuration(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
}
