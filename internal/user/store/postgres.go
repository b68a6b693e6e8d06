package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/user/models"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
	txcontext "rgpdgate/pkg/platform/tx"
)

// Postgres persists users. Queries run on the scope transaction; row-level
// security limits them to the scoped tenant.
type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

const userColumns = `id, tenant_id, email_hash, display_name, role, scope,
	data_suspended, data_suspended_reason, data_suspended_at, deleted_at, created_at`

func (s *Postgres) Create(ctx context.Context, u *models.User) error {
	if err := tenancy.EnsureNullable(ctx, u.TenantID); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email_hash, display_name, role, scope, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(u.ID), nullableTenant(u.TenantID), u.EmailHash, u.DisplayName, string(u.Role), string(u.Scope), u.CreatedAt)
	return postgres.MapError(err, "user")
}

func (s *Postgres) FindByID(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.User, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	return scanUser(row)
}

func (s *Postgres) FindByEmailHash(ctx context.Context, tenantID domain.TenantID, emailHash string) (*models.User, error) {
	if err := tenancy.EnsureNullable(ctx, tenantID); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users
		WHERE tenant_id IS NOT DISTINCT FROM $1 AND email_hash = $2 AND deleted_at IS NULL`,
		nullableTenant(tenantID), emailHash)
	return scanUser(row)
}

func (s *Postgres) SetSuspension(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, suspended bool, reason string, at time.Time) error {
	var (
		reasonArg *string
		atArg     *time.Time
	)
	if suspended {
		reasonArg, atArg = &reason, &at
	}
	return s.exec(ctx, tenantID, `
		UPDATE users SET data_suspended = $3, data_suspended_reason = $4, data_suspended_at = $5
		WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(userID), suspended, reasonArg, atArg)
}

func (s *Postgres) SoftDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) error {
	return s.exec(ctx, tenantID, `UPDATE users SET deleted_at = $3 WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID), at)
}

func (s *Postgres) Restore(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	return s.exec(ctx, tenantID, `UPDATE users SET deleted_at = NULL WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
}

func (s *Postgres) HardDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM users WHERE tenant_id = $1 AND id = $2`, uuid.UUID(tenantID), uuid.UUID(userID))
	return postgres.MapError(err, "user")
}

func (s *Postgres) SoftDeleteByTenant(ctx context.Context, tenantID domain.TenantID, at time.Time) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `UPDATE users SET deleted_at = $2 WHERE tenant_id = $1 AND deleted_at IS NULL`,
		uuid.UUID(tenantID), at)
	if err != nil {
		return 0, postgres.MapError(err, "user")
	}
	return int(tag.RowsAffected()), nil
}

func (s *Postgres) exec(ctx context.Context, tenantID domain.TenantID, sql string, args ...any) error {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u        models.User
		id       uuid.UUID
		tenant   *uuid.UUID
		role     string
		scope    string
		reason   *string
		suspAt   *time.Time
		deleteAt *time.Time
	)
	err := row.Scan(&id, &tenant, &u.EmailHash, &u.DisplayName, &role, &scope,
		&u.DataSuspended, &reason, &suspAt, &deleteAt, &u.CreatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "user")
	}
	u.ID = domain.UserID(id)
	if tenant != nil {
		u.TenantID = domain.TenantID(*tenant)
	}
	u.Role = domain.Role(role)
	u.Scope = domain.ActorScope(scope)
	if reason != nil {
		u.DataSuspendedReason = *reason
	}
	u.DataSuspendedAt = suspAt
	u.DeletedAt = deleteAt
	return &u, nil
}

func nullableTenant(id domain.TenantID) *uuid.UUID {
	if id.IsNil() {
		return nil
	}
	u := uuid.UUID(id)
	return &u
}
