// Package circuitbreaker guards calls to the remote fetch collaborator so a
// flapping peer does not tie up the fetch workers.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	Closed   State = iota // Normal operation — calls pass through.
	Open                  // Failing — calls are rejected immediately.
	HalfOpen              // Testing recovery — one call allowed through.
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker opens after a run of consecutive failures and probes recovery
// after a cooldown.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
}

// New creates a Breaker that opens after maxFailures consecutive errors and
// allows a probe call after cooldown.
func New(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{state: Closed, maxFailures: maxFailures, cooldown: cooldown}
}

// Execute runs fn through the breaker. If the circuit is open and the
// cooldown has not elapsed, ErrCircuitOpen is returned without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == Open {
		if time.Since(b.lastFailure) <= b.cooldown {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = HalfOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.failures >= b.maxFailures || b.state == HalfOpen {
			b.state = Open
		}
		return err
	}
	b.failures = 0
	b.state = Closed
	return nil
}

// CurrentState returns the breaker's state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
