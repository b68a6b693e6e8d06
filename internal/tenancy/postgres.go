package tenancy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

// PostgresRunner opens one transaction per scope. The tenant marker is set
// with set_config(..., true) so it is transaction-local and cannot survive on
// a pooled connection. When an app role is configured the transaction also
// switches to it with SET LOCAL ROLE, because table owners and superusers
// bypass row-level security.
type PostgresRunner struct {
	pool     *pgxpool.Pool
	appRole  string
	observer Observer
}

type PostgresOption func(*PostgresRunner)

// WithAppRole sets the role each scoped transaction assumes.
func WithAppRole(role string) PostgresOption {
	return func(r *PostgresRunner) { r.appRole = role }
}

func WithObserver(o Observer) PostgresOption {
	return func(r *PostgresRunner) { r.observer = o }
}

func NewPostgresRunner(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresRunner {
	r := &PostgresRunner{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PostgresRunner) RunInTenantScope(ctx context.Context, tenantID domain.TenantID, fn func(ctx context.Context) error) error {
	if tenantID.IsNil() {
		return isolation("empty tenant id")
	}
	return r.run(ctx, Scope{TenantID: tenantID}, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant_id', $1, true)`, tenantID.String())
		return err
	}, fn)
}

// RunInPlatformScope sets no tenant marker. The platform flag it sets instead
// is what the row policies accept for cross-tenant reads; callers gate this
// path behind a PLATFORM authorization check.
func (r *PostgresRunner) RunInPlatformScope(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, Scope{Platform: true}, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT set_config('app.platform_scope', 'on', true)`)
		return err
	}, fn)
}

func (r *PostgresRunner) run(
	ctx context.Context,
	s Scope,
	setup func(ctx context.Context, tx pgx.Tx) error,
	fn func(ctx context.Context) error,
) (err error) {
	joined, err := join(ctx, s)
	if err != nil {
		return err
	}
	if joined {
		return fn(ctx)
	}
	defer observe(r.observer, s, time.Now())

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scoped tx: %w", err)
	}

	// Rollback must run even if the request context is already cancelled.
	rollbackCtx := context.WithoutCancel(ctx)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(rollbackCtx)
			panic(p)
		}
	}()

	if r.appRole != "" {
		if _, err := tx.Exec(ctx, "SET LOCAL ROLE "+pgx.Identifier{r.appRole}.Sanitize()); err != nil {
			_ = tx.Rollback(rollbackCtx)
			return fmt.Errorf("assume app role: %w", err)
		}
	}
	if err := setup(ctx, tx); err != nil {
		_ = tx.Rollback(rollbackCtx)
		return fmt.Errorf("set scope marker: %w", err)
	}

	scoped := txcontext.WithTx(withScope(ctx, s), tx)
	if err := fn(scoped); err != nil {
		_ = tx.Rollback(rollbackCtx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scoped tx: %w", err)
	}
	return nil
}

func observe(o Observer, s Scope, start time.Time) {
	if o == nil {
		return
	}
	label := "tenant"
	if s.Platform {
		label = "platform"
	}
	o.ObserveScope(label, time.Since(start).Seconds())
}
