package port

import (
	"context"

	"github.com/qnit18/genzf/internal/core/domain"
)

// EventPublisher fans revocation events out to downstream services.
type EventPublisher interface {
	PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error
}
