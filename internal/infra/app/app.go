// Package app wires configuration, infrastructure, and transport into
// runnable services.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Application is one assembled service: an HTTP engine plus the background
// loops and teardown hooks that belong to it.
type Application struct {
	name       string
	addr       string
	engine     *gin.Engine
	logger     *zap.Logger
	background []func(context.Context) error
	closers    []func() error
}

// Run serves HTTP and the background loops until the context is canceled,
// then shuts down gracefully and releases resources in reverse order.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				a.logger.Warn("close resource", zap.Error(err))
			}
		}
		_ = a.logger.Sync()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(a.background)+1)
	for _, task := range a.background {
		task := task
		go func() {
			if err := task(runCtx); err != nil && runCtx.Err() == nil {
				errCh <- err
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting service",
		zap.String("service", a.name),
		zap.String("address", srv.Addr),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
