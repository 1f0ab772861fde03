package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/usecase"
)

// UserHandler serves user lookups for downstream services.
type UserHandler struct {
	users  *usecase.UserService
	logger *zap.Logger
}

func NewUserHandler(users *usecase.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: log}
}

// GetByID handles GET /users/:id.
func (h *UserHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing user id"))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}
