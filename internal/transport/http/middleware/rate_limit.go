package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/port"
)

// RateLimiter throttles credential-guessing against the login endpoint
// using a sliding window keyed by client address.
type RateLimiter struct {
	store  port.RateLimitStore
	max    int
	logger *zap.Logger
}

// NewRateLimiter constructs a limiter; a nil store disables limiting.
func NewRateLimiter(store port.RateLimitStore, maxAttempts int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &RateLimiter{store: store, max: maxAttempts, logger: logger}
}

// Limit returns the gin middleware enforcing the window. Store failures
// fail open: a broken limiter must not lock everyone out.
func (l *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.store == nil {
			c.Next()
			return
		}

		count, err := l.store.Increment(c.Request.Context(), c.ClientIP())
		if err != nil {
			l.logger.Warn("rate limit store failed", zap.Error(err))
			c.Next()
			return
		}

		if count > int64(l.max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "too many attempts, slow down"})
			return
		}

		c.Next()
	}
}
