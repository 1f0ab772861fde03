package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/infra/logger"
)

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse builds an error payload with the request correlation id.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	requestID := ""
	if c != nil && c.Request != nil {
		if val, ok := c.Request.Context().Value(logger.RequestIDKey{}).(string); ok {
			requestID = val
		}
	}
	return ErrorResponse{Error: message, RequestID: requestID}
}

// AuthenticationRequest is the POST /auth/token body.
type AuthenticationRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthenticationResponse mirrors the original wire contract.
type AuthenticationResponse struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token,omitempty"`
}

// IntrospectRequest is the POST /auth/introspect body.
type IntrospectRequest struct {
	Token string `json:"token" binding:"required"`
}

// IntrospectResponse carries only validity; failure reasons stay hidden.
type IntrospectResponse struct {
	Valid bool `json:"valid"`
}

// LogoutRequest is the POST /auth/logout body.
type LogoutRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

// UserResponse is the public view of a user record.
type UserResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// NewUserResponse converts a domain user into its wire form.
func NewUserResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: user.Permissions,
	}
}
