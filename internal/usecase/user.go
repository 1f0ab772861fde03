package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/infra/security"
	"github.com/qnit18/genzf/internal/repository"
)

// ErrUsernameTaken indicates registration collided with an existing account.
var ErrUsernameTaken = errors.New("username already taken")

// DefaultRole is granted to every newly registered user.
const DefaultRole = "USER"

// UserService serves user lookups and registration for the identity provider.
type UserService struct {
	users    port.UserRepository
	password *security.PasswordPolicy
	logger   *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users port.UserRepository, password *security.PasswordPolicy, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if password == nil {
		password = security.NewPasswordPolicy()
	}
	return &UserService{users: users, password: password, logger: logger}
}

// GetByID returns the user without password material.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidRequest)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// Register creates a new account with the default role.
func (s *UserService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", domain.ErrInvalidRequest)
	}

	if err := s.password.Validate(password, username, email); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidRequest)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Roles:        []string{DefaultRole},
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))

	sanitized := user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}
