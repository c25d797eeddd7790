package ticket

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsWithoutSleeping(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2,
		Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	err := p.Do(context.Background(), func() error { calls++; return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if len(slept) != 0 {
		t.Fatalf("success must not sleep, slept %v", slept)
	}
}

func TestRetryBacksOffExponentially(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2,
		Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep %d was %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2,
		Sleep: func(d time.Duration) { slept = append(slept, d) }}

	last := errors.New("attempt 3")
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("earlier")
	})
	if !errors.Is(err, last) {
		t.Fatalf("got %v want last attempt error", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps before giving up, got %v", slept)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second,
		Sleep: func(time.Duration) { t.Fatal("must not sleep after cancellation") }}

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("failing")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt after cancellation, got %d", calls)
	}
}

func TestRetryZeroAttemptsStillRunsOnce(t *testing.T) {
	p := RetryPolicy{}
	calls := 0
	if err := p.Do(context.Background(), func() error { calls++; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}
