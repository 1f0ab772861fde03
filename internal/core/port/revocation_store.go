package port

import (
	"context"
	"time"
)

// RevocationStore is the durable set of revoked token identifiers.
type RevocationStore interface {
	// Record marks the jti as revoked. Recording the same jti twice is a
	// no-op, not an error.
	Record(ctx context.Context, jti string, expiresAt time.Time) error
	// IsRevoked reports whether the jti has been revoked. Unknown ids,
	// including ids from tokens that were never issued, yield false.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationCache is a fast lookup layer in front of the durable store.
// Implementations may expire entries; a miss only means the durable store
// must be consulted.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error
	MarkNotRevoked(ctx context.Context, jti string) error
	Lookup(ctx context.Context, jti string) (revoked bool, known bool, err error)
}
