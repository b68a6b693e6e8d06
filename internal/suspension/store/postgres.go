package store

import (
	"context"

	"github.com/google/uuid"

	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/suspension/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

func (s *Postgres) Append(ctx context.Context, r *models.Record) error {
	if err := tenancy.Ensure(ctx, r.TenantID); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	var notes *string
	if r.Notes != "" {
		notes = &r.Notes
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO data_suspensions (id, tenant_id, user_id, suspended, reason, requested_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, uuid.UUID(r.TenantID), uuid.UUID(r.UserID), r.Suspended, string(r.Reason),
		uuid.UUID(r.RequestedBy), notes, r.CreatedAt)
	return postgres.MapError(err, "suspension")
}

func (s *Postgres) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, user_id, suspended, reason, requested_by, notes, created_at
		FROM data_suspensions WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at, id
	`, uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return nil, postgres.MapError(err, "suspension")
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var (
			r                         models.Record
			tenant, user, requestedBy uuid.UUID
			reason                    string
			notes                     *string
		)
		if err := rows.Scan(&r.ID, &tenant, &user, &r.Suspended, &reason, &requestedBy, &notes, &r.CreatedAt); err != nil {
			return nil, postgres.MapError(err, "suspension")
		}
		r.TenantID = domain.TenantID(tenant)
		r.UserID = domain.UserID(user)
		r.RequestedBy = domain.UserID(requestedBy)
		r.Reason = models.Reason(reason)
		if notes != nil {
			r.Notes = *notes
		}
		out = append(out, &r)
	}
	return out, postgres.MapError(rows.Err(), "suspension")
}

func (s *Postgres) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM data_suspensions WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return 0, postgres.MapError(err, "suspension")
	}
	return int(tag.RowsAffected()), nil
}
