package repositories

import (
	"errors"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgFKViolation     = "23503"
)

// translate maps driver errors onto the shared sentinels.
func translate(op string, err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s", notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Validation(pgErr.ColumnName, "duplicate value violates %s", pgErr.ConstraintName)
		case pgCheckViolation:
			return apperr.Validation(pgErr.ColumnName, "value violates %s", pgErr.ConstraintName)
		case pgFKViolation:
			return apperr.Validation(pgErr.ColumnName, "still referenced or missing reference (%s)", pgErr.ConstraintName)
		}
	}
	return apperr.Storage(op, err)
}
