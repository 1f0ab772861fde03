package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/repository"
)

// UserRepository implements port.UserRepository using PostgreSQL. Roles and
// permissions are stored inline as text arrays; role CRUD lives outside
// this service.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const userColumns = "id, username, email, password_hash, roles, permissions, created_at"

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	query := r.builder.Insert("auth.users").
		Columns("id", "username", "email", "password_hash", "roles", "permissions", "created_at").
		Values(user.ID, user.Username, user.Email, user.PasswordHash, user.Roles, user.Permissions, user.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUsername fetches a user by unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username})
}

func (r *UserRepository) getBy(ctx context.Context, predicate squirrel.Eq) (*domain.User, error) {
	query := r.builder.Select(userColumns).
		From("auth.users").
		Where(predicate).
		Limit(1)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sql, args...)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Roles,
		&user.Permissions,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
