package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxAttempts: 3}, zaptest.NewLogger(t))

	attempts := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxAttempts: 3}, zaptest.NewLogger(t))

	attempts := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		attempts++
		return errRemote
	})
	if !errors.Is(err, errRemote) {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryRecoversMidway(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxAttempts: 3}, zaptest.NewLogger(t))

	attempts := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errRemote
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent failure")
	retry := NewRetry(RetryConfig{
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}, zaptest.NewLogger(t))

	attempts := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryHonoursContextDuringWait(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxAttempts: 3, Wait: time.Minute}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	start := time.Now()
	err := retry.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errRemote
	})
	if !errors.Is(err, errRemote) {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("retry blocked for %v after cancellation", elapsed)
	}
}

func TestRetryPerAttemptTimeout(t *testing.T) {
	retry := NewRetry(RetryConfig{
		MaxAttempts:       2,
		PerAttemptTimeout: 10 * time.Millisecond,
	}, zaptest.NewLogger(t))

	attempts := 0
	err := retry.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRetryDefaults(t *testing.T) {
	retry := NewRetry(RetryConfig{}, zaptest.NewLogger(t))

	attempts := 0
	_ = retry.Do(context.Background(), func(context.Context) error {
		attempts++
		return errRemote
	})
	if attempts != 3 {
		t.Fatalf("attempts = %d, want default of 3", attempts)
	}
}
