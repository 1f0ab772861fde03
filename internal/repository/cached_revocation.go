package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/port"
)

// CachedRevocationStore layers a fast cache in front of the durable
// revocation store. The durable store is authoritative; the cache only
// short-circuits lookups and its failures degrade to a durable read
// instead of failing the verification.
type CachedRevocationStore struct {
	durable port.RevocationStore
	cache   port.RevocationCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewCachedRevocationStore composes the durable store with a cache. A nil
// cache yields a pass-through to the durable store.
func NewCachedRevocationStore(durable port.RevocationStore, cache port.RevocationCache, logger *zap.Logger) *CachedRevocationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRevocationStore{
		durable: durable,
		cache:   cache,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record writes the durable row first, then best-effort warms the cache.
func (s *CachedRevocationStore) Record(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := s.durable.Record(ctx, jti, expiresAt); err != nil {
		return err
	}

	if s.cache != nil {
		ttl := expiresAt.Sub(s.now())
		if err := s.cache.MarkRevoked(ctx, jti, ttl); err != nil {
			s.logger.Warn("warm revocation cache failed", zap.String("jti", jti), zap.Error(err))
		}
	}

	return nil
}

// IsRevoked consults the cache and falls through to the durable store on a
// miss or a cache error.
func (s *CachedRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.cache != nil {
		revoked, known, err := s.cache.Lookup(ctx, jti)
		if err != nil {
			s.logger.Warn("revocation cache lookup failed", zap.String("jti", jti), zap.Error(err))
		} else if known {
			return revoked, nil
		}
	}

	revoked, err := s.durable.IsRevoked(ctx, jti)
	if err != nil {
		return false, err
	}

	if s.cache != nil && !revoked {
		if err := s.cache.MarkNotRevoked(ctx, jti); err != nil {
			s.logger.Debug("cache negative revocation failed", zap.String("jti", jti), zap.Error(err))
		}
	}

	return revoked, nil
}

var _ port.RevocationStore = (*CachedRevocationStore)(nil)
