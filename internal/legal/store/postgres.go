package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rgpdgate/internal/legal/models"
	"rgpdgate/internal/platform/postgres"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
	txcontext "rgpdgate/pkg/platform/tx"
)

// Postgres stores documents in the platform-owned legal_documents table and
// acceptances in the tenant-scoped legal_acceptances table.
type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

func (s *Postgres) CreateDocument(ctx context.Context, d *models.Document) error {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO legal_documents (id, type, version, content_hash, published_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(d.ID), string(d.Type), d.Version, d.ContentHash, d.PublishedAt)
	return postgres.MapError(err, "legal document")
}

// LatestDocument compares versions in Go; text ordering does not follow
// semver precedence.
func (s *Postgres) LatestDocument(ctx context.Context, docType models.DocumentType) (*models.Document, error) {
	if err := tenancy.EnsureScoped(ctx); err != nil {
		return nil, err
	}
	tx, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT id, type, version, content_hash, published_at
		FROM legal_documents WHERE type = $1`, string(docType))
	if err != nil {
		return nil, postgres.MapError(err, "legal document")
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Document, error) {
		var (
			d    models.Document
			id   uuid.UUID
			kind string
		)
		if err := row.Scan(&id, &kind, &d.Version, &d.ContentHash, &d.PublishedAt); err != nil {
			return nil, err
		}
		d.ID = domain.DocumentID(id)
		d.Type = models.DocumentType(kind)
		return &d, nil
	})
	if err != nil {
		return nil, postgres.MapError(err, "legal document")
	}
	var latest *models.Document
	for _, d := range docs {
		if latest == nil || models.CompareVersions(d.Version, latest.Version) > 0 {
			latest = d
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest, nil
}

func (s *Postgres) CreateAcceptance(ctx context.Context, a *models.Acceptance) error {
	tx, err := scoped(ctx, a.TenantID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO legal_acceptances (id, tenant_id, user_id, document_id, accepted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, uuid.UUID(a.TenantID), uuid.UUID(a.UserID), uuid.UUID(a.DocumentID), a.AcceptedAt)
	return postgres.MapError(err, "legal acceptance")
}

func (s *Postgres) FindAcceptance(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, documentID domain.DocumentID) (*models.Acceptance, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var a models.Acceptance
	err = tx.QueryRow(ctx, `SELECT id, accepted_at FROM legal_acceptances
		WHERE tenant_id = $1 AND user_id = $2 AND document_id = $3`,
		uuid.UUID(tenantID), uuid.UUID(userID), uuid.UUID(documentID)).Scan(&a.ID, &a.AcceptedAt)
	if err != nil {
		return nil, postgres.MapError(err, "legal acceptance")
	}
	a.TenantID = tenantID
	a.UserID = userID
	a.DocumentID = documentID
	return &a, nil
}

func (s *Postgres) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	tx, err := scoped(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM legal_acceptances WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return 0, postgres.MapError(err, "legal acceptance")
	}
	return int(tag.RowsAffected()), nil
}

func scoped(ctx context.Context, tenantID domain.TenantID) (pgx.Tx, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	return txcontext.Require(ctx)
}
