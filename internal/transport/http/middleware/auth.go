package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/usecase"
)

// Forwarded identity headers set for upstream services behind the gateway.
const (
	SubjectHeader     = "X-Auth-Subject"
	AuthoritiesHeader = "X-Auth-Authorities"
)

// AuthFilterOptions configures the perimeter authentication filter.
type AuthFilterOptions struct {
	// Secret is the shared HMAC key; verification is local, no network call.
	Secret []byte
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// PublicPrefixes bypass verification entirely.
	PublicPrefixes []string
	// Denylist, when set, enables the strict variant: locally known revoked
	// jtis are treated as verification failures.
	Denylist port.Denylist
	// Clock override for tests.
	Clock func() time.Time
	Logger *zap.Logger
}

// AuthenticationFilter attributes a principal to the request when a valid
// bearer token is present. It never rejects: a missing, malformed, or
// unverifiable token simply leaves the request unauthenticated, and any
// downstream route guard decides whether that matters. Enforcement is a
// separate concern (see RequireAuthority).
func AuthenticationFilter(opts AuthFilterOptions) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		// Identity headers are only ever set here; client-supplied values
		// must not survive the perimeter.
		c.Request.Header.Del(SubjectHeader)
		c.Request.Header.Del(AuthoritiesHeader)

		if isPublicPath(c.Request.URL.Path, opts.PublicPrefixes) {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("no bearer token on request", zap.String("path", c.Request.URL.Path))
			c.Next()
			return
		}

		claims := verifyQuietly(token, opts, logger)
		if claims == nil {
			c.Next()
			return
		}

		principal := claims.Principal()
		authorities := principal.Authorities()

		c.Set(PrincipalKey, principal)
		c.Set(AuthoritiesKey, authorities)
		c.Set(ClaimsKey, claims)

		// Upstream services behind the gateway receive the identity without
		// re-parsing the token.
		c.Request.Header.Set(SubjectHeader, principal.Subject)
		c.Request.Header.Set(AuthoritiesHeader, strings.Join(authorities, " "))

		c.Next()
	}
}

// verifyQuietly runs local verification and downgrades every failure,
// including panics out of the JWT parser, to "no principal".
func verifyQuietly(token string, opts AuthFilterOptions, logger *zap.Logger) (claims *usecase.AccessTokenClaims) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("token verification panicked", zap.Any("cause", recovered))
			claims = nil
		}
	}()

	parsed, err := usecase.ParseAndVerify(token, opts.Secret, opts.Issuer, opts.Clock)
	if err != nil {
		logger.Debug("token verification failed", zap.Error(err))
		return nil
	}

	if opts.Denylist != nil && opts.Denylist.Contains(parsed.ID) {
		logger.Debug("token jti is denylisted", zap.String("jti", parsed.ID))
		return nil
	}

	return parsed
}

// RequireAuthority is the fail-closed counterpart of the filter: it aborts
// with 401 when no principal was attributed and 403 when the principal
// lacks every listed authority.
func RequireAuthority(authorities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "authentication required"})
			return
		}

		if len(authorities) > 0 && !hasAnyAuthority(principal, authorities) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				gin.H{"error": "insufficient permissions"})
			return
		}

		c.Next()
	}
}

func hasAnyAuthority(principal domain.Principal, required []string) bool {
	for _, authority := range required {
		if principal.HasAuthority(authority) {
			return true
		}
	}
	return false
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

func isPublicPath(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
