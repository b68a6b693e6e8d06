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

	"rgpdgate/internal/suspension/models"
	"rgpdgate/internal/tenancy"
	usermodels "rgpdgate/internal/user/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

var tracer = otel.Tracer("rgpdgate/internal/suspension")

// Users is the slice of the user store the gate reads and the toggle writes.
type Users interface {
	FindByID(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*usermodels.User, error)
	SetSuspension(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, suspended bool, reason string, at time.Time) error
}

// History appends and lists suspension records.
type History interface {
	Append(ctx context.Context, r *models.Record) error
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncSuspensionDenied()
}

// Service is the suspension gate plus the Art. 18 toggle lifecycle.
type Service struct {
	users   Users
	history History
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

func New(users Users, history History, runner tenancy.Runner, emitter AuditEmitter, opts ...Option) *Service {
	s := &Service{
		users:   users,
		history: history,
		runner:  runner,
		audit:   emitter,
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check fails with *models.DataSuspensionError when the user does not exist
// or has processing suspended. Read-only.
func (s *Service) Check(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	ctx, span := tracer.Start(ctx, "suspension.check")
	defer span.End()

	var denial *models.DataSuspensionError
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		u, err := s.users.FindByID(ctx, tenantID, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				denial = &models.DataSuspensionError{Reason: models.DenialUserNotFound}
				return nil
			}
			return wrap(err, "failed to read user")
		}
		if u.DataSuspended {
			denial = &models.DataSuspensionError{Reason: models.DenialSuspended}
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return err
	}
	if denial != nil {
		span.SetAttributes(attribute.String("denial_reason", string(denial.Reason)))
		span.SetStatus(codes.Error, string(dErrors.CodeProcessingSuspended))
		if s.metrics != nil {
			s.metrics.IncSuspensionDenied()
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "suspension.check.denied", "reason", string(denial.Reason))
		}
		return denial
	}
	return nil
}

// ToggleInput describes a request to suspend processing for a user.
type ToggleInput struct {
	TenantID    domain.TenantID
	UserID      domain.UserID
	Reason      models.Reason
	RequestedBy domain.UserID
	Notes       string
}

// Toggle suspends processing for the user.
//
// Errors: CodeValidation for a bad reason or notes, CodeNotFound for an
// unknown user, CodeConflict when processing is already suspended.
func (s *Service) Toggle(ctx context.Context, in ToggleInput) (*models.Record, error) {
	if !in.Reason.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid suspension reason")
	}
	notes, err := models.ValidateNotes(in.Notes)
	if err != nil {
		return nil, err
	}
	if in.RequestedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "requested by is required")
	}

	var out *models.Record
	err = s.runner.RunInTenantScope(ctx, in.TenantID, func(ctx context.Context) error {
		u, err := s.findUser(ctx, in.TenantID, in.UserID)
		if err != nil {
			return err
		}
		if u.DataSuspended {
			return dErrors.New(dErrors.CodeConflict, "processing is already suspended")
		}

		now := s.clock.Now()
		if err := s.users.SetSuspension(ctx, in.TenantID, in.UserID, true, string(in.Reason), now); err != nil {
			return wrap(err, "failed to suspend processing")
		}
		out = &models.Record{
			ID:          uuid.New(),
			TenantID:    in.TenantID,
			UserID:      in.UserID,
			Suspended:   true,
			Reason:      in.Reason,
			RequestedBy: in.RequestedBy,
			Notes:       notes,
			CreatedAt:   now,
		}
		if err := s.history.Append(ctx, out); err != nil {
			return wrap(err, "failed to record suspension")
		}
		return s.emit(ctx, audit.EventSuspensionEnabled, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unsuspend lifts a suspension. The user must currently be suspended.
func (s *Service) Unsuspend(ctx context.Context, tenantID domain.TenantID, userID, requestedBy domain.UserID, notes string) (*models.Record, error) {
	notes, err := models.ValidateNotes(notes)
	if err != nil {
		return nil, err
	}
	if requestedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "requested by is required")
	}

	var out *models.Record
	err = s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		u, err := s.findUser(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		if !u.DataSuspended {
			return dErrors.New(dErrors.CodeConflict, "processing is not suspended")
		}

		now := s.clock.Now()
		if err := s.users.SetSuspension(ctx, tenantID, userID, false, "", now); err != nil {
			return wrap(err, "failed to lift suspension")
		}
		out = &models.Record{
			ID:          uuid.New(),
			TenantID:    tenantID,
			UserID:      userID,
			Suspended:   false,
			Reason:      models.Reason(u.DataSuspendedReason),
			RequestedBy: requestedBy,
			Notes:       notes,
			CreatedAt:   now,
		}
		if err := s.history.Append(ctx, out); err != nil {
			return wrap(err, "failed to record suspension")
		}
		return s.emit(ctx, audit.EventSuspensionLifted, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error) {
	var out []*models.Record
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		records, err := s.history.ListByUser(ctx, tenantID, userID)
		if err != nil {
			return wrap(err, "failed to list suspensions")
		}
		out = records
		return nil
	})
	return out, err
}

func (s *Service) findUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*usermodels.User, error) {
	u, err := s.users.FindByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, wrap(err, "failed to read user")
	}
	return u, nil
}

func (s *Service) emit(ctx context.Context, name audit.EventName, r *models.Record) error {
	return s.audit.Emit(ctx, audit.Event{
		EventName: name,
		TenantID:  r.TenantID,
		TargetID:  r.UserID.String(),
		Metadata: map[string]any{
			"reason":    string(r.Reason),
			"has_notes": r.Notes != "",
		},
	})
}

func wrap(err error, msg string) error {
	if dErrors.HasCode(err, dErrors.CodeTenantIsolation) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
