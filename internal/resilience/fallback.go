package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] fails or
// sits behind an open breaker.
var ErrAllFailed = errors.New("all backends failed")

// FallbackConfig configures the circuit breaker created for each backend in a
// [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// fallbackEntry pairs one backend with its dedicated breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallback backends of the
// same type. Entries are tried in registration order; an entry whose breaker
// is open is skipped without a call.
//
// FallbackGroup is safe for concurrent use once all backends are registered.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	cbCfg := cfg.CircuitBreaker
	cbCfg.Name = primaryName
	return &FallbackGroup[T]{
		entries: []fallbackEntry[T]{{
			name:    primaryName,
			value:   primary,
			breaker: NewCircuitBreaker(cbCfg),
		}},
		cfg: cfg,
	}
}

// AddFallback appends a backend tried after all previously registered ones.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each entry in order until one succeeds. If every
// entry fails, the last error is wrapped in [ErrAllFailed].
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		logEntryFailure(entry.name, err)
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a value.
// It is a package-level function because Go methods cannot introduce new type
// parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		logEntryFailure(entry.name, err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

func logEntryFailure(name string, err error) {
	if errors.Is(err, ErrCircuitOpen) {
		slog.Debug("skipping backend, circuit open", "backend", name)
		return
	}
	slog.Warn("backend failed, trying next", "backend", name, "err", err)
}
