package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/qnit18/genzf/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	Window    time.Duration
}

// RateLimitRepository counts login attempts in Redis sorted sets keyed by
// caller identity. Each Increment trims entries older than the window,
// records the attempt, and returns the current count.
type RateLimitRepository struct {
	client *red.Client
	cfg    SlidingWindowConfig
	now    func() time.Time
}

// NewRateLimitRepository constructs a sliding window limiter store.
func NewRateLimitRepository(client *red.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "genzf:rate-limit"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return &RateLimitRepository{
		client: client,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Increment records an attempt and returns how many attempts fall inside
// the active window, the new one included.
func (r *RateLimitRepository) Increment(ctx context.Context, key string) (int64, error) {
	if strings.TrimSpace(key) == "" {
		return 0, fmt.Errorf("rate limit key must not be empty")
	}

	now := r.now()
	redisKey := fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, key)
	threshold := fmt.Sprintf("%d", now.Add(-r.cfg.Window).UnixNano())

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", threshold)
	pipe.ZAdd(ctx, redisKey, red.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.cfg.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis rate limit pipeline: %w", err)
	}

	return count.Val(), nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
