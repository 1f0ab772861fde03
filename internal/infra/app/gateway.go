package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qnit18/genzf/internal/gateway"
	"github.com/qnit18/genzf/internal/infra/config"
	"github.com/qnit18/genzf/internal/infra/logger"
	"github.com/qnit18/genzf/internal/infra/telemetry"
	"github.com/qnit18/genzf/internal/transport/http/handlers"
	"github.com/qnit18/genzf/internal/transport/http/middleware"
	"github.com/qnit18/genzf/internal/usecase"
)

// NewGateway assembles the perimeter proxy: request attribution via local
// token verification, then prefix routing to upstream services.
func NewGateway(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	application := &Application{
		name:   "gateway",
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

	proxy, err := gateway.NewProxy(cfg.Gateway.Routes, log)
	if err != nil {
		return nil, fmt.Errorf("init proxy: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "genzf",
		Subsystem:  "gateway",
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	application.engine = gateway.NewRouter(gateway.RouterDeps{
		Proxy:   proxy,
		Health:  handlers.NewHealthHandler(nil),
		Metrics: httpMetrics,
		Filter: middleware.AuthFilterOptions{
			Secret:         secret,
			Issuer:         cfg.JWT.Issuer,
			PublicPrefixes: cfg.Gateway.PublicPrefixes,
			Logger:         log,
		},
		Logger: log,
	})

	return application, nil
}
