package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rgpdgate/internal/consent/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

var tracer = otel.Tracer("rgpdgate/internal/consent")

// Store is the consent history port. Records are appended, never updated,
// except for the erasure cascade.
type Store interface {
	Append(ctx context.Context, r *models.Record) error
	Latest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*models.Record, error)
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error)
	SoftDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) (int, error)
	RestoreByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
	HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncConsentDenied(reason string)
}

// Service is the consent gate and the grant/revoke lifecycle.
type Service struct {
	store   Store
	runner  tenancy.Runner
	audit   AuditEmitter
	clock   clock.Clock
	logger  *slog.Logger
	metrics Metrics
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

// Check returns nil when the subject's latest record for purpose allows
// processing, or a *models.ConsentError naming the reason. The store is read
// on every call; a revocation is visible to the very next check.
func (s *Service) Check(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) error {
	ctx, span := tracer.Start(ctx, "consent.check", trace.WithAttributes(attribute.String("purpose", string(purpose))))
	defer span.End()

	if tenantID.IsNil() || userID.IsNil() || purpose == "" {
		return s.deny(ctx, span, &models.ConsentError{Reason: models.ReasonMissing, Purpose: purpose})
	}

	var latest *models.Record
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		r, err := s.store.Latest(ctx, tenantID, userID, purpose)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrap(err, "failed to read consent")
		}
		latest = r
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return err
	}

	if err := models.Evaluate(purpose, latest); err != nil {
		return s.deny(ctx, span, err)
	}
	return nil
}

// Grant appends a grant record. Granting an already effective consent
// returns the current record without a new entry.
func (s *Service) Grant(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*models.Record, error) {
	if err := validate(userID, purpose); err != nil {
		return nil, err
	}

	var out *models.Record
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		latest, err := s.store.Latest(ctx, tenantID, userID, purpose)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrap(err, "failed to read consent")
		}
		if latest != nil && latest.IsEffective() {
			out = latest
			return nil
		}

		record := models.NewGrant(domain.ConsentID(uuid.New()), tenantID, userID, purpose, s.clock.Now())
		if err := s.store.Append(ctx, record); err != nil {
			return wrap(err, "failed to grant consent")
		}
		out = record
		return s.emit(ctx, audit.EventConsentGranted, record)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Revoke appends a revocation for the subject's effective grant.
//
// Errors: CodeNotFound when no consent was ever recorded, CodeConflict when
// the latest record is not an effective grant.
func (s *Service) Revoke(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*models.Record, error) {
	if err := validate(userID, purpose); err != nil {
		return nil, err
	}

	var out *models.Record
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		latest, err := s.store.Latest(ctx, tenantID, userID, purpose)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no consent recorded for purpose")
			}
			return wrap(err, "failed to read consent")
		}
		if !latest.IsEffective() {
			return dErrors.New(dErrors.CodeConflict, "consent is not currently granted")
		}

		record := models.NewRevocation(domain.ConsentID(uuid.New()), latest, s.clock.Now())
		if err := s.store.Append(ctx, record); err != nil {
			return wrap(err, "failed to revoke consent")
		}
		out = record
		return s.emit(ctx, audit.EventConsentRevoked, record)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the subject's live consent history, oldest first.
func (s *Service) List(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error) {
	var out []*models.Record
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		records, err := s.store.ListByUser(ctx, tenantID, userID)
		if err != nil {
			return wrap(err, "failed to list consents")
		}
		out = records
		return nil
	})
	return out, err
}

func (s *Service) deny(ctx context.Context, span trace.Span, err error) error {
	var ce *models.ConsentError
	if errors.As(err, &ce) {
		span.SetAttributes(attribute.String("denial_reason", string(ce.Reason)))
		if s.metrics != nil {
			s.metrics.IncConsentDenied(string(ce.Reason))
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "consent.check.denied",
				"purpose", string(ce.Purpose),
				"reason", string(ce.Reason),
			)
		}
	}
	span.SetStatus(codes.Error, string(dErrors.CodeConsentRequired))
	return err
}

func (s *Service) emit(ctx context.Context, name audit.EventName, r *models.Record) error {
	return s.audit.Emit(ctx, audit.Event{
		EventName: name,
		TenantID:  r.TenantID,
		TargetID:  r.UserID.String(),
		Metadata: map[string]any{
			"consent_id": r.ID.String(),
			"purpose":    string(r.Purpose),
		},
	})
}

func validate(userID domain.UserID, purpose domain.ConsentPurpose) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !purpose.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return nil
}

func wrap(err error, msg string) error {
	if dErrors.HasCode(err, dErrors.CodeTenantIsolation) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
