package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rgpdgate/internal/tenancy"
	tenantmetrics "rgpdgate/internal/tenant/metrics"
	"rgpdgate/internal/tenant/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

type TenantStore interface {
	CreateIfSlugAvailable(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
	Execute(ctx context.Context, tenantID domain.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
}

// UserCascade soft-deletes a tenant's users when the tenant is deleted.
type UserCascade interface {
	SoftDeleteByTenant(ctx context.Context, tenantID domain.TenantID, at time.Time) (int, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the tenant lifecycle. Mutations run in the platform scope;
// callers authorize the PLATFORM actor before calling.
type Service struct {
	tenants TenantStore
	users   UserCascade
	runner  tenancy.Runner
	audit   AuditEmitter
	clock   clock.Clock
	logger  *slog.Logger
	metrics *tenantmetrics.Metrics
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(tenants TenantStore, users UserCascade, runner tenancy.Runner, emitter AuditEmitter, opts ...Option) *Service {
	s := &Service{
		tenants: tenants,
		users:   users,
		runner:  runner,
		audit:   emitter,
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateTenant(ctx context.Context, slug, name string) (*models.Tenant, error) {
	t, err := models.NewTenant(domain.TenantID(uuid.New()), slug, name, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		if err := s.tenants.CreateIfSlugAvailable(ctx, t); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "tenant slug must be unique")
			}
			return wrapTenantErr(err)
		}
		return s.emit(ctx, audit.EventTenantCreated, t.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.transition(ctx, "created", t.ID)
	return t, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	var t *models.Tenant
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		found, err := s.tenants.FindByID(ctx, tenantID)
		if err != nil {
			return wrapTenantErr(err)
		}
		t = found
		return nil
	})
	return t, err
}

func (s *Service) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t *models.Tenant
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		found, err := s.tenants.FindBySlug(ctx, slug)
		if err != nil {
			return wrapTenantErr(err)
		}
		t = found
		return nil
	})
	return t, err
}

func (s *Service) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	var out []*models.Tenant
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		list, err := s.tenants.List(ctx)
		if err != nil {
			return wrapTenantErr(err)
		}
		out = list
		return nil
	})
	return out, err
}

// SuspendTenant blocks all processing for the tenant until reactivation.
func (s *Service) SuspendTenant(ctx context.Context, tenantID domain.TenantID, reason string) (*models.Tenant, error) {
	now := s.clock.Now()
	return s.mutate(ctx, tenantID, "suspended", audit.EventTenantSuspended,
		func(t *models.Tenant) error { return t.CanSuspend(reason) },
		func(t *models.Tenant) { t.ApplySuspension(reason, now) },
	)
}

func (s *Service) ReactivateTenant(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	return s.mutate(ctx, tenantID, "reactivated", audit.EventTenantReactivated,
		func(t *models.Tenant) error { return t.CanReactivate() },
		func(t *models.Tenant) { t.ApplyReactivation() },
	)
}

// DeleteTenant soft-deletes the tenant and cascades the soft delete to its
// users in the same transaction.
func (s *Service) DeleteTenant(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	now := s.clock.Now()
	var (
		out     *models.Tenant
		cascade int
	)
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		t, err := s.tenants.Execute(ctx, tenantID,
			func(t *models.Tenant) error { return t.CanDelete() },
			func(t *models.Tenant) { t.ApplyDeletion(now) },
		)
		if err != nil {
			return wrapTenantErr(err)
		}
		cascade, err = s.users.SoftDeleteByTenant(ctx, tenantID, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cascade tenant deletion")
		}
		out = t
		return s.emit(ctx, audit.EventTenantDeleted, tenantID, map[string]any{"users_soft_deleted": cascade})
	})
	if err != nil {
		return nil, err
	}
	s.transition(ctx, "deleted", tenantID)
	return out, nil
}

// CheckActive fails with CodeForbidden when the tenant is suspended or
// deleted. It runs in (or joins) the tenant's own scope.
func (s *Service) CheckActive(ctx context.Context, tenantID domain.TenantID) error {
	if s.metrics != nil {
		defer s.metrics.ObserveCheckActive(time.Now())
	}
	return s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		t, err := s.tenants.FindByID(ctx, tenantID)
		if err != nil {
			return wrapTenantErr(err)
		}
		if t.IsDeleted() {
			return dErrors.New(dErrors.CodeForbidden, "tenant is deleted")
		}
		if t.IsSuspended() {
			return dErrors.New(dErrors.CodeForbidden, "tenant is suspended")
		}
		return nil
	})
}

func (s *Service) mutate(
	ctx context.Context,
	tenantID domain.TenantID,
	transition string,
	event audit.EventName,
	validate func(*models.Tenant) error,
	apply func(*models.Tenant),
) (*models.Tenant, error) {
	var out *models.Tenant
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		t, err := s.tenants.Execute(ctx, tenantID, validate, apply)
		if err != nil {
			return wrapTenantErr(err)
		}
		out = t
		return s.emit(ctx, event, tenantID, nil)
	})
	if err != nil {
		return nil, err
	}
	s.transition(ctx, transition, tenantID)
	return out, nil
}

func (s *Service) emit(ctx context.Context, name audit.EventName, tenantID domain.TenantID, metadata map[string]any) error {
	return s.audit.Emit(ctx, audit.Event{
		EventName: name,
		TenantID:  tenantID,
		TargetID:  tenantID.String(),
		Metadata:  metadata,
	})
}

func (s *Service) transition(ctx context.Context, transition string, tenantID domain.TenantID) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(transition)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "tenant."+transition, "tenant_id", tenantID)
	}
}

func wrapTenantErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	var coded dErrors.Coder
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "tenant store failure")
}
