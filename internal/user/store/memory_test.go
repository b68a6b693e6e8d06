package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/user/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store   *InMemory
	runner  *tenancy.MemoryRunner
	tenantA domain.TenantID
	tenantB domain.TenantID
	now     time.Time
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.runner = tenancy.NewMemoryRunner()
	s.tenantA = domain.TenantID(uuid.New())
	s.tenantB = domain.TenantID(uuid.New())
	s.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *UserStoreSuite) inTenant(tenantID domain.TenantID, fn func(ctx context.Context)) {
	s.Require().NoError(s.runner.RunInTenantScope(context.Background(), tenantID, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}))
}

func (s *UserStoreSuite) newMember(tenantID domain.TenantID) *models.User {
	u, err := models.NewUser(domain.UserID(uuid.New()), tenantID, uuid.NewString()+"@example.test", "Member", domain.RoleMember, domain.ScopeMember, s.now)
	s.Require().NoError(err)
	return u
}

func (s *UserStoreSuite) TestTenantIsolation() {
	u := s.newMember(s.tenantA)
	s.inTenant(s.tenantA, func(ctx context.Context) {
		s.Require().NoError(s.store.Create(ctx, u))
	})

	s.Run("other tenant scope cannot read", func() {
		s.inTenant(s.tenantB, func(ctx context.Context) {
			_, err := s.store.FindByID(ctx, s.tenantA, u.ID)
			s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))

			_, err = s.store.FindByID(ctx, s.tenantB, u.ID)
			s.ErrorIs(err, sentinel.ErrNotFound)
		})
	})

	s.Run("no scope is rejected", func() {
		_, err := s.store.FindByID(context.Background(), s.tenantA, u.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))
	})
}

func (s *UserStoreSuite) TestSoftDeleteRestoreAndCascade() {
	u1 := s.newMember(s.tenantA)
	u2 := s.newMember(s.tenantA)
	s.inTenant(s.tenantA, func(ctx context.Context) {
		s.Require().NoError(s.store.Create(ctx, u1))
		s.Require().NoError(s.store.Create(ctx, u2))

		s.Require().NoError(s.store.SoftDelete(ctx, s.tenantA, u1.ID, s.now))
		_, err := s.store.FindByID(ctx, s.tenantA, u1.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.Restore(ctx, s.tenantA, u1.ID))
		_, err = s.store.FindByID(ctx, s.tenantA, u1.ID)
		s.NoError(err)

		n, err := s.store.SoftDeleteByTenant(ctx, s.tenantA, s.now)
		s.Require().NoError(err)
		s.Equal(2, n)
	})
}

func (s *UserStoreSuite) TestSuspensionFlag() {
	u := s.newMember(s.tenantA)
	s.inTenant(s.tenantA, func(ctx context.Context) {
		s.Require().NoError(s.store.Create(ctx, u))
		s.Require().NoError(s.store.SetSuspension(ctx, s.tenantA, u.ID, true, "user_request", s.now))

		got, err := s.store.FindByID(ctx, s.tenantA, u.ID)
		s.Require().NoError(err)
		s.True(got.DataSuspended)
		s.Equal("user_request", got.DataSuspendedReason)

		s.Require().NoError(s.store.SetSuspension(ctx, s.tenantA, u.ID, false, "", s.now))
		got, err = s.store.FindByID(ctx, s.tenantA, u.ID)
		s.Require().NoError(err)
		s.False(got.DataSuspended)
		s.Nil(got.DataSuspendedAt)
	})
}

func (s *UserStoreSuite) TestPlatformUserNeedsPlatformScope() {
	u, err := models.NewUser(domain.UserID(uuid.New()), domain.TenantID{}, "ops@example.test", "Ops", domain.RoleAdmin, domain.ScopePlatform, s.now)
	s.Require().NoError(err)

	s.inTenant(s.tenantA, func(ctx context.Context) {
		s.Error(s.store.Create(ctx, u))
	})
	s.Require().NoError(s.runner.RunInPlatformScope(context.Background(), func(ctx context.Context) error {
		return s.store.Create(ctx, u)
	}))
}
