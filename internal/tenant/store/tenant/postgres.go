package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/tenant/models"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
	txcontext "rgpdgate/pkg/platform/tx"
)

// PostgresStore persists tenants. Writes require the platform scope; the
// row policy lets a tenant scope read its own row only.
type PostgresStore struct{}

func NewPostgres() *PostgresStore {
	return &PostgresStore{}
}

const tenantColumns = `id, slug, name, suspended_at, suspension_reason, deleted_at, created_at`

func (s *PostgresStore) CreateIfSlugAvailable(ctx context.Context, t *models.Tenant) error {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tenants (id, slug, name, created_at) VALUES ($1, $2, $3, $4)
	`, uuid.UUID(t.ID), t.Slug, t.Name, t.CreatedAt)
	if err != nil {
		mapped := postgres.MapError(err, "tenant")
		if errors.Is(mapped, sentinel.ErrConflict) {
			return sentinel.ErrAlreadyUsed
		}
		return mapped
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	return scanTenant(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, uuid.UUID(tenantID)))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	return scanTenant(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = lower($1)`, slug))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Tenant, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, postgres.MapError(err, "tenant")
	}
	defer rows.Close()

	var out []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, postgres.MapError(rows.Err(), "tenant")
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and
// mutate, and writes the mutable columns back.
func (s *PostgresStore) Execute(ctx context.Context, tenantID domain.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	t, err := scanTenant(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, uuid.UUID(tenantID)))
	if err != nil {
		return nil, err
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)

	var reason *string
	if t.SuspensionReason != "" {
		reason = &t.SuspensionReason
	}
	_, err = tx.Exec(ctx, `
		UPDATE tenants SET suspended_at = $2, suspension_reason = $3, deleted_at = $4 WHERE id = $1
	`, uuid.UUID(t.ID), t.SuspendedAt, reason, t.DeletedAt)
	if err != nil {
		return nil, postgres.MapError(err, "tenant")
	}
	return t, nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var (
		t      models.Tenant
		id     uuid.UUID
		reason *string
		susp   *time.Time
		del    *time.Time
	)
	if err := row.Scan(&id, &t.Slug, &t.Name, &susp, &reason, &del, &t.CreatedAt); err != nil {
		return nil, postgres.MapError(err, "tenant")
	}
	t.ID = domain.TenantID(id)
	t.SuspendedAt = susp
	t.DeletedAt = del
	if reason != nil {
		t.SuspensionReason = *reason
	}
	return &t, nil
}
