package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/infra/config"
)

// DenylistWriter is the consumer's view of the local denylist.
type DenylistWriter interface {
	Add(jti string, expiresAt time.Time)
}

// RevocationConsumer applies token.revoked events to a local denylist.
type RevocationConsumer struct {
	denylist DenylistWriter
	logger   *zap.Logger
	now      func() time.Time
}

// NewRevocationConsumer constructs a consumer that keeps the denylist current.
func NewRevocationConsumer(denylist DenylistWriter, logger *zap.Logger) *RevocationConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationConsumer{
		denylist: denylist,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *RevocationConsumer) WithClock(clock func() time.Time) *RevocationConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

// HandleMessage decodes a Kafka message prior to processing. Events arrive
// wrapped in the publisher's envelope.
func (c *RevocationConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var envelope struct {
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return fmt.Errorf("decode event envelope: %w", err)
	}
	if envelope.EventType != tokenRevokedEvent {
		c.logger.Debug("skip unrelated event", zap.String("event_type", envelope.EventType))
		return nil
	}

	var event domain.TokenRevokedEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return fmt.Errorf("decode token revoked event: %w", err)
	}

	return c.HandleEvent(ctx, event)
}

// HandleEvent records the revoked jti locally. Already-expired tokens carry
// no information a consumer still needs, so they are skipped.
func (c *RevocationConsumer) HandleEvent(_ context.Context, event domain.TokenRevokedEvent) error {
	if c.denylist == nil {
		return nil
	}
	if event.JTI == "" {
		return fmt.Errorf("token revoked event missing jti")
	}

	now := c.now()
	if event.Expired(now) {
		c.logger.Debug("skip expired revocation", zap.String("jti", event.JTI))
		return nil
	}

	c.denylist.Add(event.JTI, event.ExpiresAt)
	c.logger.Info("token revocation applied",
		zap.String("jti", event.JTI),
		zap.Time("expires_at", event.ExpiresAt),
	)
	return nil
}

// ConsumerGroup drives a RevocationConsumer from a Kafka consumer group.
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	handler *RevocationConsumer
	topics  []string
	logger  *zap.Logger
}

// NewConsumerGroup joins the configured consumer group on the revocation topic.
func NewConsumerGroup(cfg config.KafkaSettings, handler *RevocationConsumer, logger *zap.Logger) (*ConsumerGroup, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	topic := tokenRevokedEvent
	if cfg.TopicPrefix != "" {
		topic = cfg.TopicPrefix + "." + tokenRevokedEvent
	}

	return &ConsumerGroup{
		group:   group,
		handler: handler,
		topics:  []string{topic},
		logger:  logger,
	}, nil
}

// Run consumes until the context is canceled.
func (g *ConsumerGroup) Run(ctx context.Context) error {
	go func() {
		for err := range g.group.Errors() {
			g.logger.Error("Kafka consumer group error", zap.Error(err))
		}
	}()

	for {
		if err := g.group.Consume(ctx, g.topics, &groupHandler{consumer: g.handler, logger: g.logger}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume revocation topic: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (g *ConsumerGroup) Close() error {
	return g.group.Close()
}

type groupHandler struct {
	consumer *RevocationConsumer
	logger   *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.consumer.HandleMessage(session.Context(), msg); err != nil {
			// Malformed messages are logged and skipped rather than
			// blocking the partition.
			h.logger.Warn("drop revocation message", zap.Error(err))
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

var _ sarama.ConsumerGroupHandler = (*groupHandler)(nil)
