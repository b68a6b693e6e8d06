package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/user/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

// Store is the user persistence port. Every method takes the tenant first
// and runs inside a tenancy scope.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.User, error)
	FindByEmailHash(ctx context.Context, tenantID domain.TenantID, emailHash string) (*models.User, error)
	SetSuspension(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, suspended bool, reason string, at time.Time) error
	SoftDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) error
	Restore(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
	HardDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
	SoftDeleteByTenant(ctx context.Context, tenantID domain.TenantID, at time.Time) (int, error)
}

// Service registers and looks up users.
type Service struct {
	users  Store
	runner tenancy.Runner
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

func New(users Store, runner tenancy.Runner, opts ...Option) *Service {
	s := &Service{users: users, runner: runner, clock: clock.System{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries the fields of a new account. Email is hashed before
// storage and never leaves this call.
type RegisterInput struct {
	TenantID    domain.TenantID
	Email       string
	DisplayName string
	Role        domain.Role
	Scope       domain.ActorScope
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	u, err := models.NewUser(domain.UserID(uuid.New()), in.TenantID, in.Email, in.DisplayName, in.Role, in.Scope, s.clock.Now())
	if err != nil {
		return nil, err
	}

	create := func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "user already exists")
			}
			return wrap(err, "failed to create user")
		}
		return nil
	}
	if in.TenantID.IsNil() {
		err = s.runner.RunInPlatformScope(ctx, create)
	} else {
		err = s.runner.RunInTenantScope(ctx, in.TenantID, create)
	}
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user.registered", "user_id", u.ID, "scope", string(u.Scope))
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.User, error) {
	var u *models.User
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		found, err := s.users.FindByID(ctx, tenantID, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return wrap(err, "failed to load user")
		}
		u = found
		return nil
	})
	return u, err
}

func wrap(err error, msg string) error {
	if dErrors.HasCode(err, dErrors.CodeTenantIsolation) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
