package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/sentinel"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: sentinel.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: sentinel.ErrConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: sentinel.ErrNotFound},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: sentinel.ErrInvalidState},
		{name: "deadline", err: context.DeadlineExceeded, want: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err, "consent")
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), "consent")
		})
	}

	t.Run("row level security rejection is an isolation error", func(t *testing.T) {
		got := MapError(&pgconn.PgError{Code: "42501"}, "consent")
		assert.True(t, dErrors.HasCode(got, dErrors.CodeTenantIsolation))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil, "consent"))
	})

	t.Run("unknown errors are wrapped", func(t *testing.T) {
		base := errors.New("boom")
		assert.ErrorIs(t, MapError(base, "consent"), base)
	})
}
