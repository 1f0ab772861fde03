package port

import (
	"context"

	"github.com/qnit18/genzf/internal/core/domain"
)

// UserRepository provides access to the identity provider's user store.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) error
}
