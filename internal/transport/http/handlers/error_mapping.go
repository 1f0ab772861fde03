package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/usecase"
)

// RespondWithMappedError translates domain errors to HTTP statuses and writes
// the error envelope. Internal failures are logged but never leaked.
func RespondWithMappedError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request"))
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "not found"))
	case errors.Is(err, domain.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "service unavailable"))
	case errors.Is(err, usecase.ErrUsernameTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "username already taken"))
	default:
		if log != nil {
			log.Error("unhandled error", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
	}
}
