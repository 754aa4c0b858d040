package generator

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAndCoolsDown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	if !cb.Allow() {
		t.Fatal("expected breaker to allow initially")
	}
	cb.RecordFailure()
	if !cb.Allow() {
		t.Fatal("expected allow after first failure")
	}
	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("expected breaker open after threshold")
	}

	now = now.Add(time.Minute)
	if !cb.Allow() {
		t.Fatal("expected breaker to allow after cooldown")
	}
	cb.RecordSuccess()
	if cb.ConsecutiveFailures() != 0 {
		t.Errorf("failures after success: got %d", cb.ConsecutiveFailures())
	}
}

func TestNewCircuitBreakerDefaultThreshold(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Second)
	if cb.threshold != 3 {
		t.Errorf("default threshold: got %d, want 3", cb.threshold)
	}
}

func TestGuardedShortCircuits(t *testing.T) {
	calls := 0
	failing := Func(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", errors.New("boom")
	})
	g := NewGuarded(failing, NewCircuitBreaker(1, time.Hour), 0)

	_, err := g.Generate(context.Background(), Request{Kind: KindOpening})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("first call: got %v, want ErrUnavailable", err)
	}
	_, err = g.Generate(context.Background(), Request{Kind: KindOpening})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("second call: got %v, want ErrUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1 (breaker should short-circuit)", calls)
	}

	var genErr *Error
	if !errors.As(err, &genErr) || genErr.Kind != KindOpening {
		t.Errorf("expected *Error with kind opening, got %v", err)
	}
}

func TestGuardedAppliesTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := NewGuarded(slow, NewCircuitBreaker(5, time.Minute), 10*time.Millisecond)

	start := time.Now()
	_, err := g.Generate(context.Background(), Request{Kind: KindFollowup})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout not applied")
	}
}
