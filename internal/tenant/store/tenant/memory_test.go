package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/tenant/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/sentinel"
)

type TenantStoreSuite struct {
	suite.Suite
	store  *InMemory
	runner *tenancy.MemoryRunner
	now    time.Time
}

func TestTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(TenantStoreSuite))
}

func (s *TenantStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.runner = tenancy.NewMemoryRunner()
	s.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *TenantStoreSuite) asPlatform(fn func(ctx context.Context)) {
	s.Require().NoError(s.runner.RunInPlatformScope(context.Background(), func(ctx context.Context) error {
		fn(ctx)
		return nil
	}))
}

func (s *TenantStoreSuite) newTenant(slug string) *models.Tenant {
	t, err := models.NewTenant(domain.TenantID(uuid.New()), slug, "Tenant "+slug, s.now)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Minute)
	return t
}

func (s *TenantStoreSuite) TestCreationAndLookups() {
	t := s.newTenant("acme")
	s.asPlatform(func(ctx context.Context) {
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, t))
	})

	s.Run("finds by id and slug", func() {
		s.asPlatform(func(ctx context.Context) {
			byID, err := s.store.FindByID(ctx, t.ID)
			s.Require().NoError(err)
			s.Equal("acme", byID.Slug)

			bySlug, err := s.store.FindBySlug(ctx, "ACME")
			s.Require().NoError(err)
			s.Equal(t.ID, bySlug.ID)
		})
	})

	s.Run("unknown id is not found", func() {
		s.asPlatform(func(ctx context.Context) {
			_, err := s.store.FindByID(ctx, domain.TenantID(uuid.New()))
			s.ErrorIs(err, sentinel.ErrNotFound)
		})
	})

	s.Run("duplicate slug is already used", func() {
		s.asPlatform(func(ctx context.Context) {
			err := s.store.CreateIfSlugAvailable(ctx, s.newTenant("acme"))
			s.ErrorIs(err, sentinel.ErrAlreadyUsed)
		})
	})
}

func (s *TenantStoreSuite) TestScopeRules() {
	t := s.newTenant("scoped")
	other := s.newTenant("other")
	s.asPlatform(func(ctx context.Context) {
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, t))
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, other))
	})

	s.Run("tenant scope reads its own row", func() {
		err := s.runner.RunInTenantScope(context.Background(), t.ID, func(ctx context.Context) error {
			_, err := s.store.FindByID(ctx, t.ID)
			return err
		})
		s.NoError(err)
	})

	s.Run("tenant scope cannot read another tenant", func() {
		err := s.runner.RunInTenantScope(context.Background(), t.ID, func(ctx context.Context) error {
			_, err := s.store.FindByID(ctx, other.ID)
			return err
		})
		s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))
	})

	s.Run("writes require the platform scope", func() {
		err := s.runner.RunInTenantScope(context.Background(), t.ID, func(ctx context.Context) error {
			_, err := s.store.Execute(ctx, t.ID,
				func(*models.Tenant) error { return nil },
				func(m *models.Tenant) { m.ApplyDeletion(s.now) })
			return err
		})
		s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))
	})

	s.Run("no scope is rejected", func() {
		_, err := s.store.List(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))
	})
}

func (s *TenantStoreSuite) TestListIsOrderedByCreation() {
	first := s.newTenant("first")
	second := s.newTenant("second")
	s.asPlatform(func(ctx context.Context) {
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, second))
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, first))

		list, err := s.store.List(ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(first.ID, list[0].ID)
		s.Equal(second.ID, list[1].ID)
	})
}

func (s *TenantStoreSuite) TestExecute() {
	t := s.newTenant("exec")
	s.asPlatform(func(ctx context.Context) {
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, t))
	})

	s.Run("validate failure leaves the row untouched", func() {
		s.asPlatform(func(ctx context.Context) {
			_, err := s.store.Execute(ctx, t.ID,
				func(m *models.Tenant) error { return m.CanReactivate() },
				func(m *models.Tenant) { m.ApplyReactivation() })
			s.True(dErrors.HasCode(err, dErrors.CodeConflict))

			found, err := s.store.FindByID(ctx, t.ID)
			s.Require().NoError(err)
			s.True(found.IsActive())
		})
	})

	s.Run("mutation is persisted", func() {
		s.asPlatform(func(ctx context.Context) {
			updated, err := s.store.Execute(ctx, t.ID,
				func(m *models.Tenant) error { return m.CanSuspend("billing") },
				func(m *models.Tenant) { m.ApplySuspension("billing", s.now) })
			s.Require().NoError(err)
			s.True(updated.IsSuspended())

			found, err := s.store.FindByID(ctx, t.ID)
			s.Require().NoError(err)
			s.Equal("billing", found.SuspensionReason)
		})
	})

	s.Run("returned copy is detached from the store", func() {
		s.asPlatform(func(ctx context.Context) {
			found, err := s.store.FindByID(ctx, t.ID)
			s.Require().NoError(err)
			found.Name = "changed"

			again, err := s.store.FindByID(ctx, t.ID)
			s.Require().NoError(err)
			s.NotEqual("changed", again.Name)
		})
	})
}
