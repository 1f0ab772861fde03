package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/transport/http/middleware"
)

// PortfolioResponse is a single portfolio entry for the wire.
type PortfolioResponse struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PortfolioHandler serves the downstream demo resource. Each read confirms
// the owning user against the identity provider through the resilient client.
type PortfolioHandler struct {
	identity port.IdentityClient
	logger   *zap.Logger
	now      func() time.Time
}

func NewPortfolioHandler(identity port.IdentityClient, log *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{identity: identity, logger: log, now: time.Now}
}

// List handles GET /portfolios for the authenticated principal.
func (h *PortfolioHandler) List(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), principal.Subject)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, []PortfolioResponse{{
		ID:        "default",
		Owner:     user.ID,
		Name:      user.Username + "'s portfolio",
		UpdatedAt: h.now().UTC(),
	}})
}

// GetByID handles GET /portfolios/:id.
func (h *PortfolioHandler) GetByID(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
		return
	}

	id := c.Param("id")
	user, err := h.identity.GetUser(c.Request.Context(), principal.Subject)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, PortfolioResponse{
		ID:        id,
		Owner:     user.ID,
		Name:      user.Username + "'s portfolio",
		UpdatedAt: h.now().UTC(),
	})
}
