package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/usecase"
)

// AuthHandler exposes the token lifecycle endpoints.
type AuthHandler struct {
	tokens *usecase.TokenService
	users  *usecase.UserService
	logger *zap.Logger
}

func NewAuthHandler(tokens *usecase.TokenService, users *usecase.UserService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, users: users, logger: log}
}

// Token handles POST /auth/token: credential check plus token issuance.
func (h *AuthHandler) Token(c *gin.Context) {
	var req AuthenticationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	token, _, err := h.tokens.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, AuthenticationResponse{Authenticated: true, Token: token})
}

// Introspect handles POST /auth/introspect. It always answers 200 with a
// validity flag; the caller never learns why a token was rejected.
func (h *AuthHandler) Introspect(c *gin.Context) {
	var req IntrospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	valid := h.tokens.Introspect(c.Request.Context(), req.Token)
	c.JSON(http.StatusOK, IntrospectResponse{Valid: valid})
}

// Logout handles POST /auth/logout: records the token's jti as revoked.
// Revoking an already revoked or expired token is not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Register handles POST /auth/register and returns the created user.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, NewUserResponse(user))
}
