package transport

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

type breakerState string

const (
	stateClosed   breakerState = "CLOSED"
	stateOpen     breakerState = "OPEN"
	stateHalfOpen breakerState = "HALF_OPEN"
)

// CircuitBreaker stops issuing requests after threshold consecutive
// failures until resetTimeout has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	failureCount int
	threshold    int
	lastFailure  time.Time
	resetTimeout time.Duration
	state        breakerState
	trialing     bool
	now          func() time.Time
}

// NewCircuitBreaker returns a closed breaker. A threshold <= 0 never opens.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		state:        stateClosed,
		now:          time.Now,
	}
}

// Allow reports whether a request may be issued. An open breaker moves to
// half-open once resetTimeout has passed and lets one trial request
// through; other callers are refused until the trial reports Success,
// Failure or Release.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateOpen:
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			return false
		}
		cb.state = stateHalfOpen
		cb.trialing = true
		return true
	case stateHalfOpen:
		if cb.trialing {
			return false
		}
		cb.trialing = true
		return true
	default:
		return true
	}
}

// Success closes the breaker.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = stateClosed
	cb.failureCount = 0
	cb.trialing = false
}

// Release ends an allowed request whose outcome says nothing about the
// service, such as a cancelled one. A half-open breaker admits a new
// trial request.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialing = false
}

// Failure records a failed request.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialing = false
	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == stateHalfOpen || (cb.threshold > 0 && cb.failureCount >= cb.threshold) {
		cb.state = stateOpen
	}
}

// State returns the current state name.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return string(cb.state)
}

// backoff returns base * 2^attempt plus up to 50% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * base
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}
