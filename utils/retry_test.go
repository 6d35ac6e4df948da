package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Logger:      NewLogger(),
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := testRetry(3).Do(context.Background(), "flaky-op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("store down")
	calls := 0
	err := testRetry(3).Do(context.Background(), "doomed-op", func() error {
		calls++
		return sentinel
	})

	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error should wrap the last failure, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	start := time.Now()
	err := (&RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Hour,
		Logger:      NewLogger(),
	}).Do(ctx, "cancelled-op", func() error {
		calls++
		return errors.New("transient")
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1 (no retry after cancellation)", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("Do did not honor context cancellation during backoff")
	}
}
