package resilience

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryConfig is the immutable retry policy for one logical dependency.
type RetryConfig struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int
	// Wait is the pause between consecutive attempts.
	Wait time.Duration
	// PerAttemptTimeout bounds each individual attempt. Zero disables the
	// per-attempt deadline.
	PerAttemptTimeout time.Duration
	// Retryable classifies failures worth another attempt. Nil retries
	// every failure.
	Retryable func(error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Wait < 0 {
		c.Wait = 0
	}
	return c
}

// Retry re-attempts failing calls with a fixed wait between attempts. The
// inter-attempt wait honours context cancellation so a caller abandoning
// the operation never blocks a worker for the full schedule.
type Retry struct {
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetry constructs a retry policy.
func NewRetry(cfg RetryConfig, logger *zap.Logger) *Retry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retry{cfg: cfg.withDefaults(), logger: logger}
}

// Do runs fn until it succeeds, a non-retryable failure occurs, the attempt
// budget is exhausted, or ctx is cancelled. The final failure is returned
// unwrapped so callers can translate it.
func (r *Retry) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = r.attempt(ctx, fn)
		if lastErr == nil {
			return nil
		}

		if r.cfg.Retryable != nil && !r.cfg.Retryable(lastErr) {
			return lastErr
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		r.logger.Debug("retrying after failure",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Error(lastErr),
		)

		if err := wait(ctx, r.cfg.Wait); err != nil {
			return lastErr
		}
	}

	return lastErr
}

func (r *Retry) attempt(ctx context.Context, fn func(context.Context) error) error {
	if r.cfg.PerAttemptTimeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.PerAttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// wait sleeps for d without holding a goroutine past ctx cancellation.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
