// Package gateway is the perimeter reverse proxy. It attributes requests via
// the authentication filter (fail-open) and forwards them to upstream
// services by path prefix.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/infra/config"
	"github.com/qnit18/genzf/internal/transport/http/handlers"
	"github.com/qnit18/genzf/internal/transport/http/middleware"
)

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
}

// Proxy routes requests to upstreams by longest matching path prefix.
type Proxy struct {
	routes []route
	logger *zap.Logger
}

// NewProxy builds one reverse proxy per configured route.
func NewProxy(routes []config.GatewayRoute, logger *zap.Logger) (*Proxy, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("gateway: no routes configured")
	}

	built := make([]route, 0, len(routes))
	for _, r := range routes {
		if r.Prefix == "" {
			return nil, fmt.Errorf("gateway: route with empty prefix")
		}
		target, err := url.Parse(r.Upstream)
		if err != nil {
			return nil, fmt.Errorf("gateway: parse upstream %q: %w", r.Upstream, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway: upstream %q missing scheme or host", r.Upstream)
		}

		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
			logger.Warn("upstream unreachable",
				zap.String("path", req.URL.Path),
				zap.String("upstream", target.Host),
				zap.Error(err),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":"upstream unavailable"}`)
		}
		built = append(built, route{prefix: r.Prefix, proxy: proxy})
	}

	// Longest prefix wins.
	sort.Slice(built, func(i, j int) bool {
		return len(built[i].prefix) > len(built[j].prefix)
	})

	return &Proxy{routes: built, logger: logger}, nil
}

// Handler dispatches to the upstream whose prefix matches the request path.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, r := range p.routes {
			if strings.HasPrefix(path, r.prefix) {
				r.proxy.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "no route"})
	}
}

// RouterDeps carries the gateway router dependencies.
type RouterDeps struct {
	Proxy   *Proxy
	Health  *handlers.HealthHandler
	Metrics *middleware.HTTPMetrics
	Filter  middleware.AuthFilterOptions
	Logger  *zap.Logger
}

// NewRouter assembles the gateway engine: recovery, request ids, access
// logging, metrics, then the fail-open authentication filter in front of the
// proxy. The filter only attributes; upstream guards stay fail-closed.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Handler())
	}
	router.Use(middleware.AuthenticationFilter(deps.Filter))

	router.GET("/healthz", deps.Health.Live)
	router.GET("/readyz", deps.Health.Ready)

	handler := deps.Proxy.Handler()
	router.NoRoute(handler)

	return router
}
