// Package resilience provides circuit breaker and backend failover primitives
// for the AI assist layer.
//
// [CircuitBreaker] is a three-state breaker (closed → open → half-open) that
// stops hammering a failing backend. [FallbackGroup] chains several backends
// of the same type behind per-backend breakers so an unhealthy primary is
// bypassed in favour of the next healthy one.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// open and the reset timeout has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards all calls; the normal mode.
	StateClosed State = iota

	// StateOpen rejects calls immediately with [ErrCircuitOpen] after too many
	// consecutive failures, until the reset timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through after the
	// reset timeout. Enough successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero fields get defaults.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// MaxFailures is how many consecutive closed-state failures trip the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds probe calls in the half-open state. Default: 3.
	HalfOpenMax int
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenFails   int
}

// NewCircuitBreaker creates a breaker from cfg, filling in defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it. Open breakers return
// [ErrCircuitOpen] without calling fn; half-open breakers admit a bounded
// number of probes.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenCalls = 0
		cb.halfOpenFails = 0
		slog.Info("circuit breaker half-open", "name", cb.name)

	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMax {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	inHalfOpen := cb.state == StateHalfOpen
	if inHalfOpen {
		cb.halfOpenCalls++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(inHalfOpen)
	} else {
		cb.onSuccess(inHalfOpen)
	}
	return err
}

// onFailure updates failure accounting. Caller holds cb.mu.
func (cb *CircuitBreaker) onFailure(inHalfOpen bool) {
	cb.lastFailure = time.Now()

	if inHalfOpen {
		// One failed probe is enough to re-open.
		cb.halfOpenFails++
		cb.state = StateOpen
		cb.consecutiveFail = cb.maxFailures
		slog.Warn("circuit breaker re-opened", "name", cb.name)
		return
	}

	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.maxFailures {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"consecutive_failures", cb.consecutiveFail)
	}
}

// onSuccess updates success accounting. Caller holds cb.mu.
func (cb *CircuitBreaker) onSuccess(inHalfOpen bool) {
	if !inHalfOpen {
		cb.consecutiveFail = 0
		return
	}
	if cb.halfOpenCalls-cb.halfOpenFails >= cb.halfOpenMax {
		cb.state = StateClosed
		cb.consecutiveFail = 0
		cb.halfOpenCalls = 0
		cb.halfOpenFails = 0
		slog.Info("circuit breaker closed", "name", cb.name)
	}
}

// State returns the breaker's current state. An open breaker whose reset
// timeout has elapsed reports StateHalfOpen; the real transition happens on
// the next Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed and clears failure counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.consecutiveFail = 0
	cb.halfOpenCalls = 0
	cb.halfOpenFails = 0
}
