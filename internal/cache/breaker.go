package cache

import (
	"errors"
	"sync"
	"time"
)

const (
	DefaultBreakerThreshold    = 5
	DefaultBreakerResetTimeout = 30 * time.Second
)

// ErrCircuitOpen is returned without invoking the operation while the
// breaker is open. Callers should treat it as a transient condition.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker fails fast once threshold consecutive failures have been
// recorded. After resetTimeout it admits a single trial call: success
// closes the breaker, failure reopens it.
type Breaker struct {
	mu            sync.Mutex
	failures      int
	lastFailure   time.Time
	trialInFlight bool
	threshold     int
	resetTimeout  time.Duration
}

func NewBreaker(threshold int, resetTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultBreakerResetTimeout
	}
	return &Breaker{threshold: threshold, resetTimeout: resetTimeout}
}

// Execute runs op unless the breaker is open. In the half-open window
// exactly one caller is admitted as the trial; everyone else fails fast
// until the trial resolves.
func (b *Breaker) Execute(op func() error) error {
	b.mu.Lock()
	trial := false
	if b.failures >= b.threshold {
		if time.Since(b.lastFailure) < b.resetTimeout || b.trialInFlight {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		// Failures stay at the threshold so a failed trial reopens the
		// breaker immediately.
		b.trialInFlight = true
		trial = true
	}
	b.mu.Unlock()

	err := op()

	if trial {
		b.mu.Lock()
		b.trialInFlight = false
		b.mu.Unlock()
	}
	if err != nil {
		b.recordFailure()
		return err
	}
	b.Reset()
	return nil
}

// Open reports whether the next Execute would fail fast.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && (time.Since(b.lastFailure) < b.resetTimeout || b.trialInFlight)
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = time.Now()
}

// Reset fully closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.lastFailure = time.Time{}
}
