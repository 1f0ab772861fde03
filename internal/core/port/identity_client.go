package port

import (
	"context"

	"github.com/qnit18/genzf/internal/core/domain"
)

// IdentityClient is the view downstream services have of the identity
// provider. Implementations are expected to guard the remote call with a
// circuit breaker and retry policy.
type IdentityClient interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Denylist answers whether a token identifier has been revoked, from a
// local, possibly eventually-consistent view.
type Denylist interface {
	Contains(jti string) bool
}

// RateLimitStore counts requests inside a sliding window keyed by caller.
type RateLimitStore interface {
	Increment(ctx context.Context, key string) (int64, error)
}
