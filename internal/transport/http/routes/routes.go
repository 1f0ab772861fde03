// Package routes wires handlers and middleware onto gin engines for the
// auth service and the downstream portfolio service.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/transport/http/handlers"
	"github.com/qnit18/genzf/internal/transport/http/middleware"
)

// AuthServiceDeps carries everything the auth service router needs.
type AuthServiceDeps struct {
	Auth        *handlers.AuthHandler
	Users       *handlers.UserHandler
	Health      *handlers.HealthHandler
	Metrics     *middleware.HTTPMetrics
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// NewAuthServiceRouter builds the identity provider's HTTP surface.
func NewAuthServiceRouter(deps AuthServiceDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.CORS())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Handler())
	}

	router.GET("/healthz", deps.Health.Live)
	router.GET("/readyz", deps.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/auth")
	{
		tokenHandlers := []gin.HandlerFunc{deps.Auth.Token}
		if deps.RateLimiter != nil {
			tokenHandlers = append([]gin.HandlerFunc{deps.RateLimiter.Limit()}, tokenHandlers...)
		}
		auth.POST("/token", tokenHandlers...)
		auth.POST("/introspect", deps.Auth.Introspect)
		auth.POST("/logout", deps.Auth.Logout)
		auth.POST("/register", deps.Auth.Register)
	}

	router.GET("/users/:id", deps.Users.GetByID)

	return router
}

// PortfolioServiceDeps carries the downstream service router dependencies.
type PortfolioServiceDeps struct {
	Portfolio *handlers.PortfolioHandler
	Health    *handlers.HealthHandler
	Metrics   *middleware.HTTPMetrics
	Filter    middleware.AuthFilterOptions
	Denylist  port.Denylist
	Logger    *zap.Logger
}

// NewPortfolioServiceRouter builds the downstream service behind the
// authentication filter. Requests pass through the filter unauthenticated;
// protected routes enforce authorities fail-closed.
func NewPortfolioServiceRouter(deps PortfolioServiceDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Handler())
	}

	filterOpts := deps.Filter
	if filterOpts.Denylist == nil {
		filterOpts.Denylist = deps.Denylist
	}
	router.Use(middleware.AuthenticationFilter(filterOpts))

	router.GET("/healthz", deps.Health.Live)
	router.GET("/readyz", deps.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	portfolios := router.Group("/portfolios")
	portfolios.Use(middleware.RequireAuthority("ROLE_USER", "ROLE_ADMIN"))
	{
		portfolios.GET("", deps.Portfolio.List)
		portfolios.GET("/:id", deps.Portfolio.GetByID)
	}

	return router
}
