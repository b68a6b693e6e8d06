// Package service publishes legal document versions and records user
// acceptance of the current version.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"rgpdgate/internal/legal/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

type Store interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	LatestDocument(ctx context.Context, docType models.DocumentType) (*models.Document, error)
	CreateAcceptance(ctx context.Context, a *models.Acceptance) error
	FindAcceptance(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, documentID domain.DocumentID) (*models.Acceptance, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store  Store
	runner tenancy.Runner
	audit  AuditEmitter
	clock  clock.Clock
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, runner tenancy.Runner, emitter AuditEmitter, opts ...Option) *Service {
	s := &Service{
		store:  store,
		runner: runner,
		audit:  emitter,
		clock:  clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish records a new version of a document type. The version must be
// valid semver and strictly greater than the current one.
func (s *Service) Publish(ctx context.Context, docType models.DocumentType, version, text string) (*models.Document, error) {
	doc, err := models.NewDocument(domain.DocumentID(uuid.New()), docType, version, text, s.clock.Now())
	if err != nil {
		return nil, err
	}
	err = s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		current, err := s.store.LatestDocument(ctx, docType)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrap(err, "failed to read current version")
		}
		if err := doc.Supersedes(current); err != nil {
			return err
		}
		if err := s.store.CreateDocument(ctx, doc); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "version already published")
			}
			return wrap(err, "failed to publish version")
		}
		return s.audit.Emit(ctx, audit.Event{
			EventName: audit.EventLegalPublished,
			TargetID:  doc.ID.String(),
			Metadata: map[string]any{
				"legal_doc_id": doc.ID.String(),
				"legal_type":   string(doc.Type),
				"version":      doc.Version,
			},
		})
	})
	if err != nil {
		if s.logger != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.logger.InfoContext(ctx, "legal.publish.rejected", "legal_type", string(docType))
		}
		return nil, err
	}
	return doc, nil
}

// Current returns the latest version of a document type.
func (s *Service) Current(ctx context.Context, tenantID domain.TenantID, docType models.DocumentType) (*models.Document, error) {
	var out *models.Document
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		doc, err := s.latest(ctx, docType)
		out = doc
		return err
	})
	return out, err
}

// Accept records the user's acceptance of the current version. Accepting the
// same version twice returns the first record.
func (s *Service) Accept(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, docType models.DocumentType) (*models.Acceptance, error) {
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid legal document type")
	}
	var out *models.Acceptance
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		doc, err := s.latest(ctx, docType)
		if err != nil {
			return err
		}
		existing, err := s.store.FindAcceptance(ctx, tenantID, userID, doc.ID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return wrap(err, "failed to read acceptance")
		}
		a := &models.Acceptance{
			ID:         uuid.New(),
			TenantID:   tenantID,
			UserID:     userID,
			DocumentID: doc.ID,
			AcceptedAt: s.clock.Now(),
		}
		if err := s.store.CreateAcceptance(ctx, a); err != nil {
			return wrap(err, "failed to record acceptance")
		}
		out = a
		return s.audit.Emit(ctx, audit.Event{
			EventName: audit.EventLegalAccepted,
			TenantID:  tenantID,
			TargetID:  userID.String(),
			Metadata: map[string]any{
				"legal_doc_id": doc.ID.String(),
				"legal_type":   string(doc.Type),
				"version":      doc.Version,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasAcceptedLatest reports whether the user accepted the current version.
// With nothing published there is nothing to accept.
func (s *Service) HasAcceptedLatest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, docType models.DocumentType) (bool, error) {
	var accepted bool
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		doc, err := s.store.LatestDocument(ctx, docType)
		if errors.Is(err, sentinel.ErrNotFound) {
			accepted = true
			return nil
		}
		if err != nil {
			return wrap(err, "failed to read current version")
		}
		_, err = s.store.FindAcceptance(ctx, tenantID, userID, doc.ID)
		switch {
		case err == nil:
			accepted = true
		case errors.Is(err, sentinel.ErrNotFound):
		default:
			return wrap(err, "failed to read acceptance")
		}
		return nil
	})
	return accepted, err
}

func (s *Service) latest(ctx context.Context, docType models.DocumentType) (*models.Document, error) {
	doc, err := s.store.LatestDocument(ctx, docType)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no published version")
		}
		return nil, wrap(err, "failed to read current version")
	}
	return doc, nil
}

func wrap(err error, msg string) error {
	var coded dErrors.Coder
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
