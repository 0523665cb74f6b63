package salesforce

import (
	"sync"
	"time"
)

// CircuitState is the breaker position.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// breakerTripThreshold is the number of consecutive qualifying failures
// that opens the circuit.
const breakerTripThreshold = 5

// Breaker guards the upstream API with a closed/open/half-open circuit.
// Only transient and network-level failures count toward the trip
// threshold; rate-limit, authentication, and non-retryable outcomes are
// recorded by the caller through OnNeutral, which says nothing about
// upstream health but releases an in-flight half-open trial slot.
//
// A single Breaker instance is shared by all callers of a client;
// transitions are serialized by its internal mutex.
type Breaker struct {
	Cooldown time.Duration
	Clock    func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openUntil time.Time
	probing   bool
}

// BreakerSnapshot is a point-in-time view of breaker state, safe to
// serialize for the status surface.
type BreakerSnapshot struct {
	State               CircuitState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	OpenUntil           *time.Time   `json:"open_until,omitempty"`
}

// NewBreaker returns a closed breaker with the given open-state cooldown.
func NewBreaker(cooldown time.Duration) *Breaker {
	return &Breaker{
		Cooldown: cooldown,
		state:    CircuitClosed,
	}
}

// Allow reports whether a request may proceed. While open it returns a
// KindCircuitOpen error without touching the transport; at the cooldown
// boundary it admits exactly one half-open trial.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.now().Before(b.openUntil) {
			return b.openErrLocked()
		}
		// Cooldown elapsed: admit a single trial request.
		b.state = CircuitHalfOpen
		b.probing = true
		return nil
	case CircuitHalfOpen:
		if b.probing {
			return b.openErrLocked()
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// OnSuccess records a successful request, closing the circuit and
// resetting the failure counter.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = CircuitClosed
	b.failures = 0
	b.probing = false
}

// OnFailure records a qualifying failure. In the half-open state the
// failed trial re-opens the circuit with a fresh cooldown; in the closed
// state the consecutive counter increments and trips at the threshold.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.probing = false
		b.openLocked()
		return
	}

	b.failures++
	if b.failures >= breakerTripThreshold {
		b.openLocked()
	}
}

// OnNeutral records an outcome that counts as neither success nor
// failure: a rate-limit response, a non-retryable rejection, or a send
// abandoned by context cancellation. The half-open trial slot is
// released so a later call can run the probe; without this a trial that
// never reports would hold the slot forever.
func (b *Breaker) OnNeutral() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.probing = false
	}
}

// Snapshot returns the current breaker state for observability.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := BreakerSnapshot{
		State:               b.state,
		ConsecutiveFailures: b.failures,
	}
	if snapshot.State == "" {
		snapshot.State = CircuitClosed
	}
	if b.state == CircuitOpen {
		until := b.openUntil
		snapshot.OpenUntil = &until
	}
	return snapshot
}

func (b *Breaker) openLocked() {
	b.state = CircuitOpen
	b.openUntil = b.now().Add(b.Cooldown)
}

func (b *Breaker) openErrLocked() *APIError {
	return &APIError{
		Kind:    KindCircuitOpen,
		Message: "circuit breaker open, request rejected before transport",
	}
}

func (b *Breaker) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}
