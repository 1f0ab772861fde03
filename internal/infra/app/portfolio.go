package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/client"
	"github.com/qnit18/genzf/internal/denylist"
	"github.com/qnit18/genzf/internal/infra/config"
	kafkainfra "github.com/qnit18/genzf/internal/infra/kafka"
	"github.com/qnit18/genzf/internal/infra/logger"
	"github.com/qnit18/genzf/internal/infra/telemetry"
	"github.com/qnit18/genzf/internal/resilience"
	"github.com/qnit18/genzf/internal/transport/http/handlers"
	"github.com/qnit18/genzf/internal/transport/http/middleware"
	"github.com/qnit18/genzf/internal/transport/http/routes"
	"github.com/qnit18/genzf/internal/usecase"
)

// NewPortfolio assembles the downstream service: locally verified requests,
// a Kafka-fed jti denylist, and a breaker-guarded client to the identity
// provider.
func NewPortfolio(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	application := &Application{
		name:   "portfolio",
		addr:   fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		logger: log,
	}

	if cfg.Telemetry.Enabled {
		tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		application.closers = append(application.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return tracer.Shutdown(shutdownCtx)
		})
	}

	secret, err := usecase.DecodeSigningSecret(cfg.JWT.Secret)
	if err != nil {
		return nil, fmt.Errorf("init signing secret: %w", err)
	}

	breakerMetrics, err := resilience.NewBreakerMetrics(resilience.BreakerMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "genzf",
	})
	if err != nil {
		return nil, fmt.Errorf("init breaker metrics: %w", err)
	}

	breaker := resilience.NewCircuitBreaker("auth-service", resilience.BreakerConfig{
		WindowSize:           cfg.Resilience.Breaker.WindowSize,
		MinCalls:             cfg.Resilience.Breaker.MinCalls,
		FailureRateThreshold: cfg.Resilience.Breaker.FailureRateThreshold,
		OpenWait:             cfg.Resilience.Breaker.OpenWait,
		HalfOpenTrials:       cfg.Resilience.Breaker.HalfOpenTrials,
	}, log, resilience.WithBreakerMetrics(breakerMetrics))

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:       cfg.Resilience.Retry.MaxAttempts,
		Wait:              cfg.Resilience.Retry.Wait,
		PerAttemptTimeout: cfg.Resilience.Retry.PerAttemptTimeout,
		Retryable:         client.Retryable,
	}, log)

	identity, err := client.NewAuthServiceClient(client.Config{
		BaseURL: cfg.AuthClient.BaseURL,
		Timeout: cfg.AuthClient.Timeout,
	}, breaker, retry, log)
	if err != nil {
		return nil, fmt.Errorf("init auth service client: %w", err)
	}

	revoked := denylist.New()
	application.background = append(application.background, func(ctx context.Context) error {
		revoked.Prune(ctx, time.Minute)
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafkainfra.NewRevocationConsumer(revoked, log)
		group, err := kafkainfra.NewConsumerGroup(cfg.Kafka, consumer, log)
		if err != nil {
			log.Warn("failed to join revocation consumer group, denylist stays empty", zap.Error(err))
		} else {
			application.closers = append(application.closers, group.Close)
			application.background = append(application.background, group.Run)
		}
	} else {
		log.Info("kafka brokers not configured, denylist stays empty")
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "genzf",
		Subsystem:  "portfolio",
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	application.engine = routes.NewPortfolioServiceRouter(routes.PortfolioServiceDeps{
		Portfolio: handlers.NewPortfolioHandler(identity, log),
		Health:    handlers.NewHealthHandler(nil),
		Metrics:   httpMetrics,
		Filter: middleware.AuthFilterOptions{
			Secret:         secret,
			Issuer:         cfg.JWT.Issuer,
			PublicPrefixes: []string{"/healthz", "/readyz", "/metrics"},
			Logger:         log,
		},
		Denylist: revoked,
		Logger:   log,
	})

	return application, nil
}
