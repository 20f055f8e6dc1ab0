package pgdb

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the workshop material runs into.
const (
	NotNullViolationCode    = "23502"
	ForeignKeyViolationCode = "23503"
	UniqueViolationCode     = "23505"
	CheckViolationCode      = "23514"
	AmbiguousColumnCode     = "42702"
	UndefinedTableCode      = "42P01"
)

var (
	// ErrDuplicate is returned when a unique constraint is violated,
	// e.g. inserting a second state with the same abbreviation.
	ErrDuplicate = errors.New("duplicate key value")

	// ErrForeignKey is returned when a row references a key that does
	// not exist in the parent table.
	ErrForeignKey = errors.New("foreign key violation")

	// ErrNotNull is returned when a required column is left empty.
	ErrNotNull = errors.New("null value in required column")

	// ErrCheckViolation is returned when a CHECK constraint fails,
	// e.g. a negative price.
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrAmbiguousColumn is returned when a join names a column that
	// exists in more than one joined table without an alias.
	ErrAmbiguousColumn = errors.New("ambiguous column reference")

	// ErrUndefinedTable is returned when a statement names a table that
	// has not been provisioned.
	ErrUndefinedTable = errors.New("undefined table")
)

// MapError translates PostgreSQL SQLSTATE errors into the package's
// sentinel errors, keeping the server message attached. Errors that are
// not PgErrors pass through unchanged.
func MapError(err error) error {
	pe, ok := AsPgError(err)
	if !ok {
		return err
	}

	switch pe.Code {
	case NotNullViolationCode:
		return fmt.Errorf("%w: %s", ErrNotNull, pe.Message)
	case ForeignKeyViolationCode:
		return fmt.Errorf("%w: %s", ErrForeignKey, pe.Message)
	case UniqueViolationCode:
		return fmt.Errorf("%w: %s", ErrDuplicate, pe.Message)
	case CheckViolationCode:
		return fmt.Errorf("%w: %s", ErrCheckViolation, pe.Message)
	case AmbiguousColumnCode:
		return fmt.Errorf("%w: %s", ErrAmbiguousColumn, pe.Message)
	case UndefinedTableCode:
		return fmt.Errorf("%w: %s", ErrUndefinedTable, pe.Message)
	}
	return err
}

// AsPgError unwraps err to a pgconn.PgError if there is one.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// QueryError represents a query execution error.
type QueryError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}
