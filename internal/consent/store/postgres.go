package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/consent/models"
	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

// Postgres persists consent history. seq orders records within a subject so
// "latest" does not depend on clock resolution.
type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

const consentColumns = `id, tenant_id, user_id, purpose, granted, granted_at, revoked_at, deleted_at, created_at`

func (s *Postgres) Append(ctx context.Context, r *models.Record) error {
	tx, err := scoped(ctx, r.TenantID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO consents (id, tenant_id, user_id, purpose, granted, granted_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(r.ID), uuid.UUID(r.TenantID), uuid.UUID(r.UserID), string(r.Purpose),
		r.Granted, r.GrantedAt, r.RevokedAt, r.CreatedAt)
	return postgres.MapError(err, "consent")
}

func (s *Postgres) Latest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*models.Record, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+consentColumns+` FROM consents
		WHERE tenant_id = $1 AND user_id = $2 AND purpose = $3 AND deleted_at IS NULL
		ORDER BY seq DESC LIMIT 1`,
		uuid.UUID(tenantID), uuid.UUID(userID), string(purpose))
	r, err := scanRecord(row)
	if err != nil {
		return nil, postgres.MapError(err, "consent")
	}
	return r, nil
}

func (s *Postgres) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+consentColumns+` FROM consents
		WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL
		ORDER BY seq`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return nil, postgres.MapError(err, "consent")
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, postgres.MapError(err, "consent")
		}
		out = append(out, r)
	}
	return out, postgres.MapError(rows.Err(), "consent")
}

func (s *Postgres) SoftDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) (int, error) {
	return s.exec(ctx, tenantID, `UPDATE consents SET deleted_at = $3
		WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		uuid.UUID(tenantID), uuid.UUID(userID), at)
}

func (s *Postgres) RestoreByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	_, err := s.exec(ctx, tenantID, `UPDATE consents SET deleted_at = NULL WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	return err
}

func (s *Postgres) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	return s.exec(ctx, tenantID, `DELETE FROM consents WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
}

func (s *Postgres) exec(ctx context.Context, tenantID domain.TenantID, sql string, args ...any) (int, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "consent")
	}
	return int(tag.RowsAffected()), nil
}

func scoped(ctx context.Context, tenantID domain.TenantID) (pgx.Tx, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	return txcontext.Require(ctx)
}

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		r                    models.Record
		id, tenantID, userID uuid.UUID
		purpose              string
	)
	if err := row.Scan(&id, &tenantID, &userID, &purpose, &r.Granted, &r.GrantedAt, &r.RevokedAt, &r.DeletedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ID = domain.ConsentID(id)
	r.TenantID = domain.TenantID(tenantID)
	r.UserID = domain.UserID(userID)
	r.Purpose = domain.ConsentPurpose(purpose)
	return &r, nil
}
