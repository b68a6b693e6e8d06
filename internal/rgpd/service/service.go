// Package service implements the data-subject right lifecycles: encrypted
// export with bounded downloads, soft-delete with a delayed hard purge, and
// the purge job itself.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	aijobmodels "rgpdgate/internal/aijob/models"
	consentmodels "rgpdgate/internal/consent/models"
	"rgpdgate/internal/rgpd/models"
	"rgpdgate/internal/tenancy"
	usermodels "rgpdgate/internal/user/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/bundlecrypt"
	"rgpdgate/pkg/platform/clock"
)

var tracer = otel.Tracer("rgpdgate/internal/rgpd")

type RequestStore interface {
	Create(ctx context.Context, r *models.Request) error
	FindByID(ctx context.Context, tenantID domain.TenantID, id domain.RequestID) (*models.Request, error)
	FindLatest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, typ models.RequestType) (*models.Request, error)
	Execute(ctx context.Context, tenantID domain.TenantID, id domain.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Request, error)
}

type ExportStore interface {
	Create(ctx context.Context, m *models.ExportMetadata) error
	FindByTokenHash(ctx context.Context, tenantID domain.TenantID, hash string) (*models.ExportMetadata, error)
	Execute(ctx context.Context, tenantID domain.TenantID, id domain.ExportID, validate func(*models.ExportMetadata) error, mutate func(*models.ExportMetadata)) (*models.ExportMetadata, error)
	Delete(ctx context.Context, tenantID domain.TenantID, id domain.ExportID) error
	DeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]domain.ExportID, error)
	ListExpired(ctx context.Context, now time.Time) ([]*models.ExportMetadata, error)
}

// BundleStore holds encrypted envelopes only.
type BundleStore interface {
	Put(ctx context.Context, id domain.ExportID, env bundlecrypt.Envelope, ttl time.Duration) error
	Get(ctx context.Context, id domain.ExportID) (bundlecrypt.Envelope, error)
	Delete(ctx context.Context, ids ...domain.ExportID) error
}

type Users interface {
	FindByID(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*usermodels.User, error)
	SoftDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) error
	Restore(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
	HardDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
}

// Purgeable is any per-user store the hard purge must empty.
type Purgeable interface {
	HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error)
}

// Cascade is a per-user store that follows the soft-delete of its subject.
type Cascade interface {
	Purgeable
	SoftDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) (int, error)
	RestoreByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
}

type ConsentData interface {
	Cascade
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*consentmodels.Record, error)
}

type JobData interface {
	Cascade
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*aijobmodels.Job, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncExportDownload(outcome string)
	IncDeletionRequested()
	IncDeletionPurged()
}

// Stores groups the persistence ports so the constructor stays readable.
type Stores struct {
	Requests RequestStore
	Exports  ExportStore
	Bundles  BundleStore
	Users    Users
	Consents ConsentData
	Jobs     JobData
	Trail    audit.Reader
	Actors   audit.Anonymizer
	// Extra stores hard-deleted by the purge, such as suspension history and
	// review cases.
	Purgeables []Purgeable
}

type Service struct {
	stores  Stores
	runner  tenancy.Runner
	audit   AuditEmitter
	clock   clock.Clock
	logger  *slog.Logger
	metrics Metrics

	purgeConcurrency int
	purgeBatchSize   int
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPurgeLimits bounds one purge run: batch is the number of due requests
// read, concurrency the number purged in parallel.
func WithPurgeLimits(batch, concurrency int) Option {
	return func(s *Service) {
		if batch > 0 {
			s.purgeBatchSize = batch
		}
		if concurrency > 0 {
			s.purgeConcurrency = concurrency
		}
	}
}

func New(stores Stores, runner tenancy.Runner, emitter AuditEmitter, opts ...Option) *Service {
	s := &Service{
		stores:           stores,
		runner:           runner,
		audit:            emitter,
		clock:            clock.System{},
		purgeBatchSize:   100,
		purgeConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, name audit.EventName, tenantID domain.TenantID, userID domain.UserID, metadata map[string]any) error {
	return s.audit.Emit(ctx, audit.Event{
		EventName: name,
		TenantID:  tenantID,
		TargetID:  userID.String(),
		Metadata:  metadata,
	})
}

// wrap keeps coded errors intact and hides everything else behind an
// internal error.
func wrap(err error, msg string) error {
	var coded dErrors.Coder
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
