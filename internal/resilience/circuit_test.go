package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	})

	fail := func(_ context.Context) error { return errors.New("connect failed") }

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}

	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), fail)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsCounter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	})

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return errors.New("x") })
	_ = cb.Execute(context.Background(), func(_ context.Context) error { return errors.New("x") })
	_ = cb.Execute(context.Background(), func(_ context.Context) error { return nil })
	_ = cb.Execute(context.Background(), func(_ context.Context) error { return errors.New("x") })

	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after reset, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Second,
	})
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return errors.New("x") })
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	// After the reset timeout a probe is allowed, and success closes the circuit.
	now = now.Add(11 * time.Second)
	err := cb.Execute(context.Background(), func(_ context.Context) error { return nil })
	if err != nil {
		t.Fatalf("probe should be allowed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestExecuteVal_RejectedWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
	})
	_ = cb.Execute(context.Background(), func(_ context.Context) error { return errors.New("x") })

	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		t.Fatal("fn should not run with open circuit")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerGroup_PerHostIsolation(t *testing.T) {
	g := NewBreakerGroup(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	_ = g.For("mx1.example.com").Execute(context.Background(), func(_ context.Context) error {
		return errors.New("down")
	})

	if g.For("mx1.example.com").State() != CircuitOpen {
		t.Error("mx1 breaker should be open")
	}
	if g.For("mx2.example.com").State() != CircuitClosed {
		t.Error("mx2 breaker should be unaffected")
	}
	if g.For("mx1.example.com") != g.For("mx1.example.com") {
		t.Error("same host should return same breaker")
	}
}
