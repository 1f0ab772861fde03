package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qnit18/genzf/internal/core/domain"
)

// Context keys under which the filter publishes the request identity.
const (
	PrincipalKey   = "principal"
	AuthoritiesKey = "authorities"
	ClaimsKey      = "claims"
)

// GetPrincipal retrieves the authenticated principal, if the filter
// attached one.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return domain.Principal{}, false
	}

	principal, ok := value.(domain.Principal)
	return principal, ok
}

// GetAuthorities retrieves the authority set attached by the filter.
func GetAuthorities(c *gin.Context) []string {
	value, exists := c.Get(AuthoritiesKey)
	if !exists {
		return nil
	}

	authorities, ok := value.([]string)
	if !ok {
		return nil
	}
	return authorities
}
