// Package service runs the dispute (Art. 22) and opposition (Art. 21)
// workflows: a data subject files a case, a human reviewer answers it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rgpdgate/internal/review/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, tenantID domain.TenantID, id domain.CaseID) (*models.Case, error)
	Execute(ctx context.Context, tenantID domain.TenantID, id domain.CaseID, validate func(*models.Case) error, mutate func(*models.Case)) (*models.Case, error)
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, kind models.Kind) ([]*models.Case, error)
	ListOpen(ctx context.Context, tenantID domain.TenantID, kind models.Kind) ([]*models.Case, error)
	ListOverdue(ctx context.Context, tenantID domain.TenantID, kind models.Kind, now time.Time) ([]*models.Case, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	cases  Store
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

func New(cases Store, runner tenancy.Runner, emitter AuditEmitter, opts ...Option) *Service {
	s := &Service{
		cases:  cases,
		runner: runner,
		audit:  emitter,
		clock:  clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type FileInput struct {
	TenantID      domain.TenantID
	UserID        domain.UserID
	Kind          models.Kind
	Reason        string
	SubjectRef    string
	HasAttachment bool
}

var createdEvents = map[models.Kind]audit.EventName{
	models.KindDispute:    audit.EventDisputeCreated,
	models.KindOpposition: audit.EventOppositionCreated,
}

var reviewedEvents = map[models.Kind]audit.EventName{
	models.KindDispute:    audit.EventDisputeReviewed,
	models.KindOpposition: audit.EventOppositionReviewed,
}

// File opens a case. The reason text is stored, never audited.
func (s *Service) File(ctx context.Context, in FileInput) (*models.Case, error) {
	c, err := models.NewCase(domain.CaseID(uuid.New()), in.TenantID, in.UserID, in.Kind, in.Reason, in.SubjectRef, in.HasAttachment, s.clock.Now())
	if err != nil {
		return nil, err
	}
	err = s.runner.RunInTenantScope(ctx, in.TenantID, func(ctx context.Context) error {
		if err := s.cases.Create(ctx, c); err != nil {
			return wrap(err, "failed to file case")
		}
		return s.audit.Emit(ctx, audit.Event{
			EventName: createdEvents[c.Kind],
			TenantID:  c.TenantID,
			TargetID:  c.UserID.String(),
			Metadata: map[string]any{
				idKey(c.Kind):    c.ID.String(),
				"has_attachment": c.HasAttachment,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Review applies a reviewer decision. Closing a case requires a non-empty
// response; closed cases are final.
func (s *Service) Review(ctx context.Context, tenantID domain.TenantID, kind models.Kind, id domain.CaseID, r models.Review) (*models.Case, error) {
	var out *models.Case
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		now := s.clock.Now()
		c, err := s.cases.Execute(ctx, tenantID, id,
			func(c *models.Case) error {
				if c.Kind != kind {
					return dErrors.New(dErrors.CodeNotFound, "case not found")
				}
				return c.CanReview(r)
			},
			func(c *models.Case) { c.ApplyReview(r, now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "case not found")
			}
			return wrap(err, "failed to review case")
		}
		out = c
		return s.audit.Emit(ctx, audit.Event{
			EventName: reviewedEvents[c.Kind],
			TenantID:  c.TenantID,
			TargetID:  c.UserID.String(),
			Metadata: map[string]any{
				idKey(c.Kind):            c.ID.String(),
				"user_id":                c.UserID.String(),
				"status":                 string(c.Status),
				"has_attachment":         c.HasAttachment,
				"human_review_completed": true,
			},
		})
	})
	if err != nil {
		if s.logger != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.logger.InfoContext(ctx, "review.transition.rejected", "case_id", id.String(), "target", string(r.Status))
		}
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, tenantID domain.TenantID, id domain.CaseID) (*models.Case, error) {
	var out *models.Case
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		c, err := s.cases.FindByID(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "case not found")
			}
			return wrap(err, "failed to read case")
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Service) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, kind models.Kind) ([]*models.Case, error) {
	return s.list(ctx, tenantID, func(ctx context.Context) ([]*models.Case, error) {
		return s.cases.ListByUser(ctx, tenantID, userID, kind)
	})
}

// ListOpen returns pending and under-review cases of a kind.
func (s *Service) ListOpen(ctx context.Context, tenantID domain.TenantID, kind models.Kind) ([]*models.Case, error) {
	return s.list(ctx, tenantID, func(ctx context.Context) ([]*models.Case, error) {
		return s.cases.ListOpen(ctx, tenantID, kind)
	})
}

// ListOverdue returns open cases past their 30-day response deadline.
func (s *Service) ListOverdue(ctx context.Context, tenantID domain.TenantID, kind models.Kind) ([]*models.Case, error) {
	now := s.clock.Now()
	return s.list(ctx, tenantID, func(ctx context.Context) ([]*models.Case, error) {
		return s.cases.ListOverdue(ctx, tenantID, kind, now)
	})
}

func (s *Service) list(ctx context.Context, tenantID domain.TenantID, fn func(ctx context.Context) ([]*models.Case, error)) ([]*models.Case, error) {
	var out []*models.Case
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		cases, err := fn(ctx)
		if err != nil {
			return wrap(err, "failed to list cases")
		}
		out = cases
		return nil
	})
	return out, err
}

func idKey(kind models.Kind) string {
	if kind == models.KindOpposition {
		return "opposition_id"
	}
	return "dispute_id"
}

func wrap(err error, msg string) error {
	var coded dErrors.Coder
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
