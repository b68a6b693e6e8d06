package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/sentinel"
)

// MapError converts pgx/pgconn errors to sentinel errors so services can
// translate them without importing the driver. Context errors pass through.
func MapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", entity, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, sentinel.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", entity, sentinel.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", entity, sentinel.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s: %w", entity, sentinel.ErrInvalidState)
		case "42501": // insufficient_privilege, raised by row-level security WITH CHECK
			return dErrors.Wrap(err, dErrors.CodeTenantIsolation, entity+": row outside the current tenant scope")
		}
	}

	return fmt.Errorf("%s: %w", entity, err)
}
