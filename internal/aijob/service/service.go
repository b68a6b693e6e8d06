package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rgpdgate/internal/aijob/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

var tracer = otel.Tracer("rgpdgate/internal/aijob")

type Store interface {
	Create(ctx context.Context, j *models.Job) error
	FindByID(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID) (*models.Job, error)
	Execute(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error)
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Job, error)
}

// TenantChecker fails when the tenant is suspended or deleted.
type TenantChecker interface {
	CheckActive(ctx context.Context, tenantID domain.TenantID) error
}

type ConsentGate interface {
	Check(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) error
}

type SuspensionGate interface {
	Check(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service records AI invocations behind the tenant, consent and suspension
// gates. It stores metadata only.
type Service struct {
	jobs       Store
	tenants    TenantChecker
	consent    ConsentGate
	suspension SuspensionGate
	runner     tenancy.Runner
	audit      AuditEmitter
	clock      clock.Clock
	logger     *slog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(jobs Store, tenants TenantChecker, consent ConsentGate, suspension SuspensionGate, runner tenancy.Runner, emitter AuditEmitter, opts ...Option) *Service {
	s := &Service{
		jobs:       jobs,
		tenants:    tenants,
		consent:    consent,
		suspension: suspension,
		runner:     runner,
		audit:      emitter,
		clock:      clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type InvokeInput struct {
	TenantID domain.TenantID
	UserID   domain.UserID
	Purpose  domain.ConsentPurpose
	ModelRef string
}

// Invoke checks, in order, that the tenant is active, that the subject has
// consented to the purpose and that processing is not suspended, then records
// a PENDING job. Every gate runs in the same tenant scope as the insert, so a
// revocation committed before the scope opens is always seen.
func (s *Service) Invoke(ctx context.Context, in InvokeInput) (*models.Job, error) {
	ctx, span := tracer.Start(ctx, "ai.invoke", trace.WithAttributes(attribute.String("purpose", string(in.Purpose))))
	defer span.End()

	job, err := models.NewJob(domain.AiJobID(uuid.New()), in.TenantID, in.UserID, in.Purpose, in.ModelRef, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTenantScope(ctx, in.TenantID, func(ctx context.Context) error {
		if err := s.tenants.CheckActive(ctx, in.TenantID); err != nil {
			return err
		}
		if err := s.consent.Check(ctx, in.TenantID, in.UserID, in.Purpose); err != nil {
			return err
		}
		if err := s.suspension.Check(ctx, in.TenantID, in.UserID); err != nil {
			return err
		}
		if err := s.jobs.Create(ctx, job); err != nil {
			return wrap(err, "failed to record ai job")
		}
		return s.audit.Emit(ctx, audit.Event{
			EventName: audit.EventAIInvocationRequested,
			TenantID:  in.TenantID,
			TargetID:  in.UserID.String(),
			Metadata: map[string]any{
				"job_id":  job.ID.String(),
				"purpose": string(job.Purpose),
			},
		})
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		if s.logger != nil {
			s.logger.InfoContext(ctx, "ai.invoke.rejected", "purpose", string(in.Purpose), "error", err)
		}
		return nil, err
	}
	return job, nil
}

// Transition moves a job forward. Backward or repeated transitions conflict.
func (s *Service) Transition(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID, to models.Status) (*models.Job, error) {
	var (
		out  *models.Job
		from models.Status
	)
	now := s.clock.Now()
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		j, err := s.jobs.Execute(ctx, tenantID, jobID,
			func(j *models.Job) error {
				from = j.Status
				return j.CanTransition(to)
			},
			func(j *models.Job) { j.ApplyTransition(to, now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "ai job not found")
			}
			return wrap(err, "failed to update ai job")
		}
		out = j
		return s.audit.Emit(ctx, audit.Event{
			EventName: audit.EventAIJobStatusChanged,
			TenantID:  tenantID,
			TargetID:  j.UserID.String(),
			Metadata: map[string]any{
				"job_id": j.ID.String(),
				"from":   string(from),
				"to":     string(to),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID) (*models.Job, error) {
	var out *models.Job
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		j, err := s.jobs.FindByID(ctx, tenantID, jobID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "ai job not found")
			}
			return wrap(err, "failed to load ai job")
		}
		out = j
		return nil
	})
	return out, err
}

// ListByUser returns the subject's AI job metadata, oldest first.
func (s *Service) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Job, error) {
	var out []*models.Job
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		jobs, err := s.jobs.ListByUser(ctx, tenantID, userID)
		if err != nil {
			return wrap(err, "failed to list ai jobs")
		}
		out = jobs
		return nil
	})
	return out, err
}

func wrap(err error, msg string) error {
	if dErrors.HasCode(err, dErrors.CodeTenantIsolation) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
