package salesforce

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/forcelens/forcelens/internal/metrics"
)

// Policy holds the resilience knobs for a pipeline. It is read at
// construction and never mutated afterwards.
type Policy struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	BaseBackoff     time.Duration `mapstructure:"base_backoff"`
}

// DefaultPolicy mirrors the defaults bound in config.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		BreakerCooldown: 30 * time.Second,
		BaseBackoff:     time.Second,
	}
}

// maxRateLimitWaits bounds how many 429 waits a single Execute call will
// honor before the rate-limit outcome propagates.
const maxRateLimitWaits = 3

// Result is the transport-agnostic response handed back by a SendFunc.
// The body is fully read so classification can inspect it.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// SendFunc performs one transport attempt.
type SendFunc func(ctx context.Context) (*Result, error)

// Pipeline wraps every outbound call with three ordered stages:
// rate-limit wait, retry with backoff and jitter, and circuit breaking.
// Rate-limit outcomes wait and retry without touching the breaker;
// transient and network failures retry with jittered backoff and feed
// the breaker; authentication and non-retryable outcomes propagate
// immediately. The pipeline knows nothing about HTTP beyond Result, so
// it serves the token-free and authenticated transports alike.
type Pipeline struct {
	policy  Policy
	breaker *Breaker

	// sleep and jitter are injection points for tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewPipeline builds a pipeline with a fresh closed breaker.
func NewPipeline(policy Policy) *Pipeline {
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = time.Second
	}
	return &Pipeline{
		policy:  policy,
		breaker: NewBreaker(policy.BreakerCooldown),
		sleep:   sleepContext,
		jitter:  randomJitter,
	}
}

// Breaker exposes the pipeline's breaker for status snapshots.
func (p *Pipeline) Breaker() *Breaker {
	return p.breaker
}

// Execute runs send through the pipeline until it succeeds, exhausts its
// budgets, or hits a non-retryable outcome. Context cancellation aborts
// any pending wait and propagates without breaker accounting.
func (p *Pipeline) Execute(ctx context.Context, send SendFunc) (*Result, error) {
	attempt := 0
	rateWaits := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.breaker.Allow(); err != nil {
			return nil, err
		}

		res, err := send(ctx)
		if err != nil {
			if isContextErr(err) {
				// The abandoned send said nothing about upstream
				// health; release a held half-open trial slot.
				p.breaker.OnNeutral()
				return nil, err
			}
			// Network-level failure: qualifies for the breaker and
			// the retry budget.
			p.breaker.OnFailure()
			if attempt >= p.policy.MaxRetries {
				return nil, err
			}
			if err := p.sleep(ctx, p.retryBackoff(attempt)); err != nil {
				return nil, err
			}
			attempt++
			metrics.RecordAPIRetry("network")
			continue
		}

		if res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices {
			p.breaker.OnSuccess()
			return res, nil
		}

		apiErr := Classify(res.StatusCode, res.Header, res.Body)
		switch apiErr.Kind {
		case KindRateLimited:
			// A 429 is the upstream pacing us, not failing.
			p.breaker.OnNeutral()
			if rateWaits >= maxRateLimitWaits {
				return nil, apiErr
			}
			wait := apiErr.RetryAfter
			if !apiErr.RetryHinted {
				wait = p.plainBackoff(rateWaits)
			}
			if err := p.sleep(ctx, wait); err != nil {
				return nil, err
			}
			rateWaits++
			metrics.RecordAPIRetry(string(KindRateLimited))
		case KindTransient:
			p.breaker.OnFailure()
			if attempt >= p.policy.MaxRetries {
				return nil, apiErr
			}
			if err := p.sleep(ctx, p.retryBackoff(attempt)); err != nil {
				return nil, err
			}
			attempt++
			metrics.RecordAPIRetry(string(KindTransient))
		default:
			// Authentication, non-retryable, malformed: never retried
			// here and never counted by the breaker.
			p.breaker.OnNeutral()
			return nil, apiErr
		}
	}
}

// retryBackoff is base*2^attempt plus jitter in [0,1000)ms, spreading
// concurrent retriers so they do not storm the upstream in lockstep.
func (p *Pipeline) retryBackoff(attempt int) time.Duration {
	return p.plainBackoff(attempt) + p.jitter()
}

// plainBackoff is base*2^attempt with no jitter, used for unhinted
// rate-limit waits.
func (p *Pipeline) plainBackoff(attempt int) time.Duration {
	backoff := p.policy.BaseBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int63n(1000)) * time.Millisecond
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
