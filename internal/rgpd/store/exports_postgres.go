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

type ExportPostgres struct{}

func NewExportPostgres() *ExportPostgres {
	return &ExportPostgres{}
}

const exportColumns = `id, tenant_id, user_id, download_token_hash, expires_at, download_count, created_at`

func (s *ExportPostgres) Create(ctx context.Context, m *models.ExportMetadata) error {
	tx, err := scoped(ctx, m.TenantID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO export_metadata (`+exportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(m.ID), uuid.UUID(m.TenantID), uuid.UUID(m.UserID), m.DownloadTokenHash,
		m.ExpiresAt, m.DownloadCount, m.CreatedAt)
	return postgres.MapError(err, "export")
}

// FindByTokenHash filters on tenant_id as well as the row policy, so a
// foreign token reads as not found.
func (s *ExportPostgres) FindByTokenHash(ctx context.Context, tenantID domain.TenantID, hash string) (*models.ExportMetadata, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m, err := scanExport(tx.QueryRow(ctx, `SELECT `+exportColumns+` FROM export_metadata
		WHERE tenant_id = $1 AND download_token_hash = $2`, uuid.UUID(tenantID), hash))
	return m, postgres.MapError(err, "export")
}

// Execute locks the row so concurrent downloads cannot exceed the bound.
func (s *ExportPostgres) Execute(ctx context.Context, tenantID domain.TenantID, id domain.ExportID, validate func(*models.ExportMetadata) error, mutate func(*models.ExportMetadata)) (*models.ExportMetadata, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m, err := scanExport(tx.QueryRow(ctx, `SELECT `+exportColumns+` FROM export_metadata
		WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, uuid.UUID(tenantID), uuid.UUID(id)))
	if err != nil {
		return nil, postgres.MapError(err, "export")
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	mutate(m)
	_, err = tx.Exec(ctx, `UPDATE export_metadata SET download_count = $3 WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(id), m.DownloadCount)
	if err != nil {
		return nil, postgres.MapError(err, "export")
	}
	return m, nil
}

func (s *ExportPostgres) Delete(ctx context.Context, tenantID domain.TenantID, id domain.ExportID) error {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM export_metadata WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(id))
	if err != nil {
		return postgres.MapError(err, "export")
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "export")
	}
	return nil
}

func (s *ExportPostgres) DeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]domain.ExportID, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `DELETE FROM export_metadata WHERE tenant_id = $1 AND user_id = $2 RETURNING id`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return nil, postgres.MapError(err, "export")
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ExportID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return domain.ExportID(id), err
	})
	return ids, postgres.MapError(err, "export")
}

func (s *ExportPostgres) ListExpired(ctx context.Context, now time.Time) ([]*models.ExportMetadata, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+exportColumns+` FROM export_metadata WHERE expires_at < $1`, now)
	if err != nil {
		return nil, postgres.MapError(err, "export")
	}
	defer rows.Close()

	var out []*models.ExportMetadata
	for rows.Next() {
		m, err := scanExport(rows)
		if err != nil {
			return nil, postgres.MapError(err, "export")
		}
		out = append(out, m)
	}
	return out, postgres.MapError(rows.Err(), "export")
}

func scanExport(row pgx.Row) (*models.ExportMetadata, error) {
	var (
		m                    models.ExportMetadata
		id, tenantID, userID uuid.UUID
	)
	if err := row.Scan(&id, &tenantID, &userID, &m.DownloadTokenHash, &m.ExpiresAt, &m.DownloadCount, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ID = domain.ExportID(id)
	m.TenantID = domain.TenantID(tenantID)
	m.UserID = domain.UserID(userID)
	return &m, nil
}
