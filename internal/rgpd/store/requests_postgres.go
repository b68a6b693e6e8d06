package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/rgpd/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

// RequestPostgres relies on the partial unique index
// rgpd_requests_one_pending to reject duplicate pending requests.
type RequestPostgres struct{}

func NewRequestPostgres() *RequestPostgres {
	return &RequestPostgres{}
}

const requestColumns = `id, tenant_id, user_id, type, status, scheduled_purge_at, completed_at, created_at`

func (s *RequestPostgres) Create(ctx context.Context, r *models.Request) error {
	tx, err := scoped(ctx, r.TenantID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO rgpd_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(r.ID), uuid.UUID(r.TenantID), uuid.UUID(r.UserID), string(r.Type), string(r.Status),
		r.ScheduledPurgeAt, r.CompletedAt, r.CreatedAt)
	return postgres.MapError(err, "rgpd request")
}

func (s *RequestPostgres) FindByID(ctx context.Context, tenantID domain.TenantID, id domain.RequestID) (*models.Request, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM rgpd_requests
		WHERE tenant_id = $1 AND id = $2`, uuid.UUID(tenantID), uuid.UUID(id)))
	return r, postgres.MapError(err, "rgpd request")
}

func (s *RequestPostgres) FindLatest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, typ models.RequestType) (*models.Request, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM rgpd_requests
		WHERE tenant_id = $1 AND user_id = $2 AND type = $3
		ORDER BY created_at DESC LIMIT 1`, uuid.UUID(tenantID), uuid.UUID(userID), string(typ)))
	return r, postgres.MapError(err, "rgpd request")
}

func (s *RequestPostgres) Execute(ctx context.Context, tenantID domain.TenantID, id domain.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM rgpd_requests
		WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, uuid.UUID(tenantID), uuid.UUID(id)))
	if err != nil {
		return nil, postgres.MapError(err, "rgpd request")
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	mutate(r)
	_, err = tx.Exec(ctx, `UPDATE rgpd_requests SET status = $3, completed_at = $4
		WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(id), string(r.Status), r.CompletedAt)
	if err != nil {
		return nil, postgres.MapError(err, "rgpd request")
	}
	return r, nil
}

func (s *RequestPostgres) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Request, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := tx.Query(ctx, `SELECT `+requestColumns+` FROM rgpd_requests
		WHERE type = $1 AND status = $2 AND scheduled_purge_at <= $3
		ORDER BY scheduled_purge_at LIMIT $4`,
		string(models.RequestDelete), string(models.StatusPending), now, lim)
	if err != nil {
		return nil, postgres.MapError(err, "rgpd request")
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, postgres.MapError(err, "rgpd request")
		}
		out = append(out, r)
	}
	return out, postgres.MapError(rows.Err(), "rgpd request")
}

func scoped(ctx context.Context, tenantID domain.TenantID) (pgx.Tx, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	return txcontext.Require(ctx)
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var (
		r                    models.Request
		id, tenantID, userID uuid.UUID
		typ, status          string
	)
	if err := row.Scan(&id, &tenantID, &userID, &typ, &status, &r.ScheduledPurgeAt, &r.CompletedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ID = domain.RequestID(id)
	r.TenantID = domain.TenantID(tenantID)
	r.UserID = domain.UserID(userID)
	r.Type = models.RequestType(typ)
	r.Status = models.RequestStatus(status)
	return &r, nil
}
