package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend error")

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	t.Run("closed forwards calls", func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "t", MaxFailures: 3})

		called := false
		if err := cb.Execute(func() error { called = true; return nil }); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !called {
			t.Fatal("fn not called in closed state")
		}
	})

	t.Run("opens after max consecutive failures", func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{
			Name: "t", MaxFailures: 3, ResetTimeout: time.Hour,
		})

		for i := 0; i < 3; i++ {
			_ = cb.Execute(func() error { return errBackend })
		}
		if cb.State() != StateOpen {
			t.Fatalf("State() = %v, want open", cb.State())
		}
		if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("err = %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("success resets the failure counter", func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "t", MaxFailures: 3})

		_ = cb.Execute(func() error { return errBackend })
		_ = cb.Execute(func() error { return errBackend })
		_ = cb.Execute(func() error { return nil })
		_ = cb.Execute(func() error { return errBackend })
		_ = cb.Execute(func() error { return errBackend })

		if cb.State() != StateClosed {
			t.Fatalf("State() = %v, want closed after counter reset", cb.State())
		}
	})
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	open := func(t *testing.T, halfOpenMax int) *CircuitBreaker {
		t.Helper()
		cb := NewCircuitBreaker(CircuitBreakerConfig{
			Name: "t", MaxFailures: 2, ResetTimeout: 10 * time.Millisecond, HalfOpenMax: halfOpenMax,
		})
		_ = cb.Execute(func() error { return errBackend })
		_ = cb.Execute(func() error { return errBackend })
		if cb.State() != StateOpen {
			t.Fatal("breaker did not open")
		}
		time.Sleep(15 * time.Millisecond)
		return cb
	}

	t.Run("reported after reset timeout", func(t *testing.T) {
		cb := open(t, 2)
		if cb.State() != StateHalfOpen {
			t.Fatalf("State() = %v, want half-open", cb.State())
		}
	})

	t.Run("closes after enough successful probes", func(t *testing.T) {
		cb := open(t, 2)
		for i := 0; i < 2; i++ {
			if err := cb.Execute(func() error { return nil }); err != nil {
				t.Fatalf("probe %d: %v", i, err)
			}
		}
		if cb.State() != StateClosed {
			t.Fatalf("State() = %v, want closed", cb.State())
		}
	})

	t.Run("one failed probe re-opens", func(t *testing.T) {
		cb := open(t, 3)
		if err := cb.Execute(func() error { return errBackend }); err == nil {
			t.Fatal("failing probe returned nil")
		}

		cb.mu.Lock()
		s := cb.state
		cb.mu.Unlock()
		if s != StateOpen {
			t.Fatalf("state = %v, want open", s)
		}
	})
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name: "t", MaxFailures: 2, ResetTimeout: time.Hour,
	})
	_ = cb.Execute(func() error { return errBackend })
	_ = cb.Execute(func() error { return errBackend })

	cb.Reset()

	if cb.State() != StateClosed {
		t.Fatalf("State() = %v, want closed after reset", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after reset: %v", err)
	}
}

func TestCircuitBreaker_ConfigDefaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "t"})
	if cb.maxFailures != 5 || cb.resetTimeout != 30*time.Second || cb.halfOpenMax != 3 {
		t.Errorf("defaults = {%d %v %d}, want {5 30s 3}",
			cb.maxFailures, cb.resetTimeout, cb.halfOpenMax)
	}
}
