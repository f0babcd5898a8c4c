package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"yarny/internal/domain"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation. A parent
// folder deleted between the check and the insert surfaces this way.
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// translateInsertError maps constraint violations from a drive_files insert
// to domain errors.
func translateInsertError(err error, id, name, parentID string) error {
	switch {
	case err == nil:
		return nil
	case IsPgDuplicateError(err):
		return &domain.ConflictError{Message: fmt.Sprintf("file %s already exists", id), ResourceType: "file", ResourceID: id}
	case IsPgForeignKeyError(err):
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", parentID)}
	default:
		return fmt.Errorf("insert %s: %w", name, err)
	}
}
