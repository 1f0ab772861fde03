package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/qnit18/genzf/internal/core/port"
)

const (
	defaultRevocationPrefix = "genzf:revoked"

	revokedMarker    = "1"
	notRevokedMarker = "0"
)

// RevocationCache mirrors revocation state in Redis so the hot verify path
// rarely touches PostgreSQL. Positive entries expire with the token;
// negative entries carry a short TTL so a revocation propagates quickly.
type RevocationCache struct {
	client      *red.Client
	prefix      string
	negativeTTL time.Duration
}

// NewRevocationCache wires a Redis client into a revocation cache.
func NewRevocationCache(client *red.Client, keyPrefix string, negativeTTL time.Duration) *RevocationCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	if negativeTTL <= 0 {
		negativeTTL = 30 * time.Second
	}

	return &RevocationCache{client: client, prefix: prefix, negativeTTL: negativeTTL}
}

// MarkRevoked caches the jti as revoked until the token's own expiry.
func (c *RevocationCache) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error {
	key := c.key(jti)
	if key == "" {
		return errors.New("jti must not be empty")
	}
	if ttl <= 0 {
		// The token already expired; nothing left to protect.
		return nil
	}

	if err := c.client.Set(ctx, key, revokedMarker, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked jti: %w", err)
	}

	return nil
}

// MarkNotRevoked caches a negative result for the short negative TTL.
func (c *RevocationCache) MarkNotRevoked(ctx context.Context, jti string) error {
	key := c.key(jti)
	if key == "" {
		return errors.New("jti must not be empty")
	}

	if err := c.client.Set(ctx, key, notRevokedMarker, c.negativeTTL).Err(); err != nil {
		return fmt.Errorf("redis set unrevoked jti: %w", err)
	}

	return nil
}

// Lookup returns the cached revocation state. known is false on a cache
// miss, in which case the durable store must decide.
func (c *RevocationCache) Lookup(ctx context.Context, jti string) (bool, bool, error) {
	key := c.key(jti)
	if key == "" {
		return false, false, errors.New("jti must not be empty")
	}

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("redis get revoked jti: %w", err)
	}

	return value == revokedMarker, true, nil
}

func (c *RevocationCache) key(jti string) string {
	trimmed := strings.TrimSpace(jti)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}

var _ port.RevocationCache = (*RevocationCache)(nil)
