package upstream

import (
	"errors"
	"sync"
	"time"

	"github.com/userdesk/backend/internal/config"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("upstream unavailable: circuit breaker is open")

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half-open"
)

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	mu            sync.RWMutex
	failures      int
	maxFailures   int
	state         string // closed, open, half-open
	lastFailure   time.Time
	resetTimeout  time.Duration
	halfOpenLimit int
	halfOpenCount int
	now           func() time.Time
}

// NewCircuitBreaker creates a closed breaker. MaxFailures <= 0 disables it.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	limit := cfg.HalfOpenLimit
	if limit <= 0 {
		limit = 1
	}
	return &CircuitBreaker{
		maxFailures:   cfg.MaxFailures,
		resetTimeout:  cfg.ResetTimeout,
		halfOpenLimit: limit,
		state:         stateClosed,
		now:           time.Now,
	}
}

func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateOpen:
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.state = stateHalfOpen
		cb.halfOpenCount = 1
	case stateHalfOpen:
		if cb.halfOpenCount >= cb.halfOpenLimit {
			return ErrCircuitOpen
		}
		cb.halfOpenCount++
	}

	return nil
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = stateClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	if cb.maxFailures > 0 && (cb.state == stateHalfOpen || cb.failures >= cb.maxFailures) {
		cb.state = stateOpen
	}
}

func (cb *CircuitBreaker) State() string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}
