package tx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dErrors "rgpdgate/pkg/domain-errors"
)

// Querier is the subset of pgx.Tx used by postgres stores.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a pgx transaction in context for downstream store usage.
func WithTx(ctx context.Context, t pgx.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, t)
}

// From extracts the pgx transaction from context if present.
func From(ctx context.Context) (pgx.Tx, bool) {
	t, ok := ctx.Value(txKey).(pgx.Tx)
	return t, ok
}

// Require returns the scoped transaction or an isolation error. Postgres
// stores never fall back to the pool: a query outside a scope is a bug.
func Require(ctx context.Context) (pgx.Tx, error) {
	t, ok := From(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeTenantIsolation, "database access outside a tenant or platform scope")
	}
	return t, nil
}
