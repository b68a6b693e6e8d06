package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/review/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

const caseColumns = `id, tenant_id, user_id, kind, reason, subject_ref, has_attachment, status,
	admin_response, reviewed_by, created_at, reviewed_at, resolved_at, due_at`

func (s *Postgres) Create(ctx context.Context, c *models.Case) error {
	tx, err := scoped(ctx, c.TenantID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO review_cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(c.ID), uuid.UUID(c.TenantID), uuid.UUID(c.UserID), string(c.Kind), c.Reason,
		nullable(c.SubjectRef), c.HasAttachment, string(c.Status), nullable(c.AdminResponse),
		reviewer(c.ReviewedBy), c.CreatedAt, c.ReviewedAt, c.ResolvedAt, c.DueAt)
	return postgres.MapError(err, "review case")
}

func (s *Postgres) FindByID(ctx context.Context, tenantID domain.TenantID, id domain.CaseID) (*models.Case, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c, err := scanCase(tx.QueryRow(ctx, `SELECT `+caseColumns+` FROM review_cases
		WHERE tenant_id = $1 AND id = $2`, uuid.UUID(tenantID), uuid.UUID(id)))
	return c, postgres.MapError(err, "review case")
}

func (s *Postgres) Execute(ctx context.Context, tenantID domain.TenantID, id domain.CaseID, validate func(*models.Case) error, mutate func(*models.Case)) (*models.Case, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c, err := scanCase(tx.QueryRow(ctx, `SELECT `+caseColumns+` FROM review_cases
		WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, uuid.UUID(tenantID), uuid.UUID(id)))
	if err != nil {
		return nil, postgres.MapError(err, "review case")
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	_, err = tx.Exec(ctx, `UPDATE review_cases
		SET status = $3, admin_response = $4, reviewed_by = $5, reviewed_at = $6, resolved_at = $7
		WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(id), string(c.Status), nullable(c.AdminResponse),
		reviewer(c.ReviewedBy), c.ReviewedAt, c.ResolvedAt)
	if err != nil {
		return nil, postgres.MapError(err, "review case")
	}
	return c, nil
}

func (s *Postgres) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, kind models.Kind) ([]*models.Case, error) {
	return s.query(ctx, tenantID, `SELECT `+caseColumns+` FROM review_cases
		WHERE tenant_id = $1 AND user_id = $2 AND kind = $3 ORDER BY created_at`,
		uuid.UUID(tenantID), uuid.UUID(userID), string(kind))
}

func (s *Postgres) ListOpen(ctx context.Context, tenantID domain.TenantID, kind models.Kind) ([]*models.Case, error) {
	return s.query(ctx, tenantID, `SELECT `+caseColumns+` FROM review_cases
		WHERE tenant_id = $1 AND kind = $2 AND status IN ($3, $4) ORDER BY created_at`,
		uuid.UUID(tenantID), string(kind), string(models.StatusPending), string(models.StatusUnderReview))
}

func (s *Postgres) ListOverdue(ctx context.Context, tenantID domain.TenantID, kind models.Kind, now time.Time) ([]*models.Case, error) {
	return s.query(ctx, tenantID, `SELECT `+caseColumns+` FROM review_cases
		WHERE tenant_id = $1 AND kind = $2 AND status IN ($3, $4) AND due_at < $5 ORDER BY created_at`,
		uuid.UUID(tenantID), string(kind), string(models.StatusPending), string(models.StatusUnderReview), now)
}

func (s *Postgres) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM review_cases WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return 0, postgres.MapError(err, "review case")
	}
	return int(tag.RowsAffected()), nil
}

func (s *Postgres) query(ctx context.Context, tenantID domain.TenantID, sql string, args ...any) ([]*models.Case, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "review case")
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, postgres.MapError(err, "review case")
		}
		out = append(out, c)
	}
	return out, postgres.MapError(rows.Err(), "review case")
}

func scoped(ctx context.Context, tenantID domain.TenantID) (pgx.Tx, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	return txcontext.Require(ctx)
}

func scanCase(row pgx.Row) (*models.Case, error) {
	var (
		c                         models.Case
		id, tenantID, userID      uuid.UUID
		kind, status              string
		subjectRef, adminResponse *string
		reviewedBy                *uuid.UUID
	)
	err := row.Scan(&id, &tenantID, &userID, &kind, &c.Reason, &subjectRef, &c.HasAttachment, &status,
		&adminResponse, &reviewedBy, &c.CreatedAt, &c.ReviewedAt, &c.ResolvedAt, &c.DueAt)
	if err != nil {
		return nil, err
	}
	c.ID = domain.CaseID(id)
	c.TenantID = domain.TenantID(tenantID)
	c.UserID = domain.UserID(userID)
	c.Kind = models.Kind(kind)
	c.Status = models.Status(status)
	if subjectRef != nil {
		c.SubjectRef = *subjectRef
	}
	if adminResponse != nil {
		c.AdminResponse = *adminResponse
	}
	if reviewedBy != nil {
		r := domain.UserID(*reviewedBy)
		c.ReviewedBy = &r
	}
	return &c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func reviewer(id *domain.UserID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := uuid.UUID(*id)
	return &u
}
