package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/qnit18/genzf/internal/core/port"
)

// RevocationRepository is the durable revoked-jti set backed by PostgreSQL.
// One row per revoked token; rows past their expires_at may be purged by a
// housekeeping job without affecting correctness, since an expired token
// already fails verification on expiry grounds.
type RevocationRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRevocationRepository wires a PostgreSQL-backed revocation store.
func NewRevocationRepository(exec pgExecutor) *RevocationRepository {
	return &RevocationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record inserts the revocation row. Recording an already-revoked jti is a
// no-op thanks to ON CONFLICT DO NOTHING.
func (r *RevocationRepository) Record(ctx context.Context, jti string, expiresAt time.Time) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return errors.New("jti must not be empty")
	}

	query := r.builder.Insert("auth.revoked_tokens").
		Columns("jti", "expires_at", "revoked_at").
		Values(jti, expiresAt.UTC(), time.Now().UTC()).
		Suffix("ON CONFLICT (jti) DO NOTHING")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert revocation sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert revocation: %w", err)
	}

	return nil
}

// IsRevoked reports whether the jti exists in the revoked set. Unknown ids
// yield false without error.
func (r *RevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, errors.New("jti must not be empty")
	}

	query := r.builder.Select("1").
		From("auth.revoked_tokens").
		Where(squirrel.Eq{"jti": jti}).
		Limit(1)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("build select revocation sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("query revocation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, fmt.Errorf("scan revocation: %w", err)
		}
		return false, nil
	}

	return true, nil
}

var _ port.RevocationStore = (*RevocationRepository)(nil)
