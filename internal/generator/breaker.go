package generator

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitBreaker stops calling the generator after consecutive failures
// until a cooldown has passed.
type CircuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	threshold           int
	cooldown            time.Duration
	openUntil           time.Time
	now                 func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold failures.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3 // default
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may go through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.openUntil.IsZero() || !cb.now().Before(cb.openUntil)
}

// RecordFailure increments the failure counter and opens the breaker once
// the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.threshold {
		cb.openUntil = cb.now().Add(cb.cooldown)
	}
}

// RecordSuccess resets the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.openUntil = time.Time{}
}

// ConsecutiveFailures returns the current failure count.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures
}

// ErrBreakerOpen is wrapped into ErrUnavailable while the breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// Guarded wraps a Generator with a CircuitBreaker and a per-call timeout.
type Guarded struct {
	next    Generator
	breaker *CircuitBreaker
	timeout time.Duration
}

// NewGuarded wraps next. A non-positive timeout leaves ctx untouched.
func NewGuarded(next Generator, breaker *CircuitBreaker, timeout time.Duration) *Guarded {
	return &Guarded{next: next, breaker: breaker, timeout: timeout}
}

// Generate forwards to the wrapped generator unless the breaker is open.
func (g *Guarded) Generate(ctx context.Context, req Request) (string, error) {
	if !g.breaker.Allow() {
		return "", unavailable(req.Kind, ErrBreakerOpen)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.next.Generate(ctx, req)
	if err != nil {
		g.breaker.RecordFailure()
		if !errors.Is(err, ErrUnavailable) {
			err = unavailable(req.Kind, err)
		}
		return "", err
	}
	g.breaker.RecordSuccess()
	return out, nil
}
