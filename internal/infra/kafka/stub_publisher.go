package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishTokenRevoked logs token.revoked events.
func (p *StubPublisher) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	at := event.RevokedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", tokenRevokedEvent),
		zap.String("jti", event.JTI),
		zap.String("subject", event.Subject),
		zap.Time("timestamp", at.UTC()),
		zap.Time("expires_at", event.ExpiresAt),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
