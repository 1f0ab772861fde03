package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/infra/config"
	"github.com/qnit18/genzf/internal/infra/database"
	kafkainfra "github.com/qnit18/genzf/internal/infra/kafka"
	"github.com/qnit18/genzf/internal/infra/logger"
	redisinfra "github.com/qnit18/genzf/internal/infra/redis"
	"github.com/qnit18/genzf/internal/infra/security"
	"github.com/qnit18/genzf/internal/infra/telemetry"
	"github.com/qnit18/genzf/internal/repository"
	postgresrepo "github.com/qnit18/genzf/internal/repository/postgres"
	redisrepo "github.com/qnit18/genzf/internal/repository/redis"
	"github.com/qnit18/genzf/internal/transport/http/handlers"
	"github.com/qnit18/genzf/internal/transport/http/middleware"
	"github.com/qnit18/genzf/internal/transport/http/routes"
	"github.com/qnit18/genzf/internal/usecase"
)

// NewAuthService assembles the identity provider: token issuance,
// verification, introspection, revocation, and user management.
func NewAuthService(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	application := &Application{
		name:   "auth",
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

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	application.closers = append(application.closers, func() error {
		pool.Close()
		return nil
	})

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	application.closers = append(application.closers, redisClient.Close)

	repos := postgresrepo.NewRepositories(pool)
	revocationCache := redisrepo.NewRevocationCache(redisClient.Client(), cfg.Redis.RevocationPrefix, cfg.Redis.NegativeTTL)
	revocations := repository.NewCachedRevocationStore(repos.Revocations, revocationCache, log)

	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			application.closers = append(application.closers, producer.Close)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	tokenService, err := usecase.NewTokenService(cfg, repos.Users, revocations, log,
		usecase.WithEventPublisher(publisher))
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	userService := usecase.NewUserService(repos.Users, security.NewPasswordPolicy(), log)

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "genzf:rate-limit",
		Window:    cfg.RateLimit.WindowDuration,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, cfg.RateLimit.LoginMaxAttempts, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "genzf",
		Subsystem:  "auth",
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	health := handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis":    redisClient.HealthCheck,
	})

	application.engine = routes.NewAuthServiceRouter(routes.AuthServiceDeps{
		Auth:        handlers.NewAuthHandler(tokenService, userService, log),
		Users:       handlers.NewUserHandler(userService, log),
		Health:      health,
		Metrics:     httpMetrics,
		RateLimiter: rateLimiter,
		Logger:      log,
	})

	return application, nil
}
