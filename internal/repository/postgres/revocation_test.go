package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"
)

func TestRevocationRepository_Record(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRevocationRepository(mock)
	expiresAt := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO auth\.revoked_tokens \(jti,expires_at,revoked_at\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \(jti\) DO NOTHING`).
		WithArgs("jti-1", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Record(context.Background(), "jti-1", expiresAt); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevocationRepository_RecordConflictIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRevocationRepository(mock)
	expiresAt := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	// Zero rows affected is still success: the jti was already revoked.
	mock.ExpectExec(`INSERT INTO auth\.revoked_tokens`).
		WithArgs("jti-1", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	if err := repo.Record(context.Background(), "jti-1", expiresAt); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
}

func TestRevocationRepository_RecordRejectsEmptyJTI(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRevocationRepository(mock)

	if err := repo.Record(context.Background(), "  ", time.Now()); err == nil {
		t.Fatal("expected error for empty jti")
	}
}

func TestRevocationRepository_IsRevoked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRevocationRepository(mock)

	mock.ExpectQuery(`SELECT 1 FROM auth\.revoked_tokens WHERE jti = \$1 LIMIT 1`).
		WithArgs("jti-1").
		WillReturnRows(pgxmock.NewRows([]string{"1"}).AddRow(1))

	revoked, err := repo.IsRevoked(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if !revoked {
		t.Fatal("expected revoked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevocationRepository_IsRevokedUnknownJTI(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRevocationRepository(mock)

	mock.ExpectQuery(`SELECT 1 FROM auth\.revoked_tokens`).
		WithArgs("never-issued").
		WillReturnRows(pgxmock.NewRows([]string{"1"}))

	revoked, err := repo.IsRevoked(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Fatal("unknown jti must not read as revoked")
	}
}

func TestRevocationRepository_IsRevokedPropagatesErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRevocationRepository(mock)

	mock.ExpectQuery(`SELECT 1 FROM auth\.revoked_tokens`).
		WithArgs("jti-1").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.IsRevoked(context.Background(), "jti-1"); err == nil {
		t.Fatal("expected query error to propagate")
	}
}
