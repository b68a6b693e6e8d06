package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/incident/models"
	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
)

type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

const incidentColumns = `id, tenant_id, severity, type, risk_level, title, description, data_categories,
	users_affected, records_affected, detected_at, detected_by, cnil_notified_at, users_notified_at,
	resolved_at, created_at`

func (s *Postgres) Create(ctx context.Context, inc *models.Incident) error {
	if err := tenancy.EnsureNullable(ctx, inc.TenantID); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	var description *string
	if inc.Description != "" {
		description = &inc.Description
	}
	_, err = tx.Exec(ctx, `INSERT INTO security_incidents (`+incidentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		uuid.UUID(inc.ID), tenantArg(inc.TenantID), string(inc.Severity), string(inc.Type),
		string(inc.RiskLevel), inc.Title, description, inc.DataCategories, inc.UsersAffected,
		inc.RecordsAffected, inc.DetectedAt, userArg(inc.DetectedBy), inc.CnilNotifiedAt,
		inc.UsersNotifiedAt, inc.ResolvedAt, inc.CreatedAt)
	return postgres.MapError(err, "incident")
}

func (s *Postgres) FindByID(ctx context.Context, id domain.IncidentID) (*models.Incident, error) {
	tx, err := platform(ctx)
	if err != nil {
		return nil, err
	}
	inc, err := scanIncident(tx.QueryRow(ctx, `SELECT `+incidentColumns+` FROM security_incidents
		WHERE id = $1`, uuid.UUID(id)))
	return inc, postgres.MapError(err, "incident")
}

// Execute only rewrites the follow-up timestamps; the rest of the record is
// immutable once registered.
func (s *Postgres) Execute(ctx context.Context, id domain.IncidentID, validate func(*models.Incident) error, mutate func(*models.Incident)) (*models.Incident, error) {
	tx, err := platform(ctx)
	if err != nil {
		return nil, err
	}
	inc, err := scanIncident(tx.QueryRow(ctx, `SELECT `+incidentColumns+` FROM security_incidents
		WHERE id = $1 FOR UPDATE`, uuid.UUID(id)))
	if err != nil {
		return nil, postgres.MapError(err, "incident")
	}
	if err := validate(inc); err != nil {
		return nil, err
	}
	mutate(inc)
	_, err = tx.Exec(ctx, `UPDATE security_incidents
		SET cnil_notified_at = $2, users_notified_at = $3, resolved_at = $4
		WHERE id = $1`,
		uuid.UUID(id), inc.CnilNotifiedAt, inc.UsersNotifiedAt, inc.ResolvedAt)
	if err != nil {
		return nil, postgres.MapError(err, "incident")
	}
	return inc, nil
}

func (s *Postgres) ListUnresolved(ctx context.Context) ([]*models.Incident, error) {
	tx, err := platform(ctx)
	if err != nil {
		return nil, err
	}
	return query(ctx, tx, `SELECT `+incidentColumns+` FROM security_incidents
		WHERE resolved_at IS NULL ORDER BY detected_at DESC, id`)
}

func (s *Postgres) ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]*models.Incident, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	return query(ctx, tx, `SELECT `+incidentColumns+` FROM security_incidents
		WHERE tenant_id = $1 ORDER BY detected_at DESC, id`, uuid.UUID(tenantID))
}

func platform(ctx context.Context) (pgx.Tx, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	return txcontext.Require(ctx)
}

func query(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]*models.Incident, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "incident")
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, postgres.MapError(err, "incident")
		}
		out = append(out, inc)
	}
	return out, postgres.MapError(rows.Err(), "incident")
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var (
		inc                  models.Incident
		id                   uuid.UUID
		tenantID, detectedBy *uuid.UUID
		severity, kind, risk string
		description          *string
	)
	err := row.Scan(&id, &tenantID, &severity, &kind, &risk, &inc.Title, &description,
		&inc.DataCategories, &inc.UsersAffected, &inc.RecordsAffected, &inc.DetectedAt, &detectedBy,
		&inc.CnilNotifiedAt, &inc.UsersNotifiedAt, &inc.ResolvedAt, &inc.CreatedAt)
	if err != nil {
		return nil, err
	}
	inc.ID = domain.IncidentID(id)
	if tenantID != nil {
		inc.TenantID = domain.TenantID(*tenantID)
	}
	inc.Severity = models.Severity(severity)
	inc.Type = models.Type(kind)
	inc.RiskLevel = models.RiskLevel(risk)
	if description != nil {
		inc.Description = *description
	}
	if detectedBy != nil {
		u := domain.UserID(*detectedBy)
		inc.DetectedBy = &u
	}
	return &inc, nil
}

func tenantArg(id domain.TenantID) *uuid.UUID {
	if id.IsNil() {
		return nil
	}
	u := uuid.UUID(id)
	return &u
}

func userArg(id *domain.UserID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := uuid.UUID(*id)
	return &u
}
