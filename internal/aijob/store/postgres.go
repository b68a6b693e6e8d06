package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/aijob/models"
	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

const jobColumns = `id, tenant_id, user_id, purpose, model_ref, status, created_at, started_at, completed_at, deleted_at`

func (s *Postgres) Create(ctx context.Context, j *models.Job) error {
	tx, err := scoped(ctx, j.TenantID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO ai_jobs (id, tenant_id, user_id, purpose, model_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(j.ID), uuid.UUID(j.TenantID), uuid.UUID(j.UserID), string(j.Purpose), j.ModelRef, string(j.Status), j.CreatedAt)
	return postgres.MapError(err, "ai job")
}

func (s *Postgres) FindByID(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID) (*models.Job, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM ai_jobs
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`, uuid.UUID(tenantID), uuid.UUID(jobID)))
	return j, postgres.MapError(err, "ai job")
}

// Execute locks the row, validates, mutates and writes back the status fields.
func (s *Postgres) Execute(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM ai_jobs
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL FOR UPDATE`, uuid.UUID(tenantID), uuid.UUID(jobID)))
	if err != nil {
		return nil, postgres.MapError(err, "ai job")
	}
	if err := validate(j); err != nil {
		return nil, err
	}
	mutate(j)
	_, err = tx.Exec(ctx, `UPDATE ai_jobs SET status = $3, started_at = $4, completed_at = $5
		WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(jobID), string(j.Status), j.StartedAt, j.CompletedAt)
	if err != nil {
		return nil, postgres.MapError(err, "ai job")
	}
	return j, nil
}

func (s *Postgres) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Job, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+jobColumns+` FROM ai_jobs
		WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL ORDER BY created_at`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return nil, postgres.MapError(err, "ai job")
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, postgres.MapError(err, "ai job")
		}
		out = append(out, j)
	}
	return out, postgres.MapError(rows.Err(), "ai job")
}

func (s *Postgres) SoftDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) (int, error) {
	return s.exec(ctx, tenantID, `UPDATE ai_jobs SET deleted_at = $3
		WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		uuid.UUID(tenantID), uuid.UUID(userID), at)
}

func (s *Postgres) RestoreByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	_, err := s.exec(ctx, tenantID, `UPDATE ai_jobs SET deleted_at = NULL WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	return err
}

func (s *Postgres) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	return s.exec(ctx, tenantID, `DELETE FROM ai_jobs WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
}

func (s *Postgres) exec(ctx context.Context, tenantID domain.TenantID, sql string, args ...any) (int, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "ai job")
	}
	return int(tag.RowsAffected()), nil
}

func scoped(ctx context.Context, tenantID domain.TenantID) (pgx.Tx, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	return txcontext.Require(ctx)
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j                    models.Job
		id, tenantID, userID uuid.UUID
		purpose, status      string
	)
	err := row.Scan(&id, &tenantID, &userID, &purpose, &j.ModelRef, &status,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.DeletedAt)
	if err != nil {
		return nil, err
	}
	j.ID = domain.AiJobID(id)
	j.TenantID = domain.TenantID(tenantID)
	j.UserID = domain.UserID(userID)
	j.Purpose = domain.ConsentPurpose(purpose)
	j.Status = models.Status(status)
	return &j, nil
}
