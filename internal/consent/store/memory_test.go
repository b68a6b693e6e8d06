package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/consent/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/sentinel"
)

type ConsentStoreSuite struct {
	suite.Suite
	store  *InMemory
	runner *tenancy.MemoryRunner
	tenant domain.TenantID
	user   domain.UserID
	now    time.Time
}

func TestConsentStoreSuite(t *testing.T) {
	suite.Run(t, new(ConsentStoreSuite))
}

func (s *ConsentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.runner = tenancy.NewMemoryRunner()
	s.tenant = domain.TenantID(uuid.New())
	s.user = domain.UserID(uuid.New())
	s.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *ConsentStoreSuite) scoped(fn func(ctx context.Context)) {
	s.Require().NoError(s.runner.RunInTenantScope(context.Background(), s.tenant, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}))
}

func (s *ConsentStoreSuite) grant(purpose domain.ConsentPurpose) *models.Record {
	return models.NewGrant(domain.ConsentID(uuid.New()), s.tenant, s.user, purpose, s.now)
}

func (s *ConsentStoreSuite) TestLatestFollowsAppendOrder() {
	g := s.grant(domain.ConsentPurposeAIProcessing)
	// Same timestamp: order must come from append sequence, not time.
	r := models.NewRevocation(domain.ConsentID(uuid.New()), g, s.now)

	s.scoped(func(ctx context.Context) {
		s.Require().NoError(s.store.Append(ctx, g))
		s.Require().NoError(s.store.Append(ctx, r))

		latest, err := s.store.Latest(ctx, s.tenant, s.user, domain.ConsentPurposeAIProcessing)
		s.Require().NoError(err)
		s.Equal(r.ID, latest.ID)

		_, err = s.store.Latest(ctx, s.tenant, s.user, domain.ConsentPurposeMarketing)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ConsentStoreSuite) TestDuplicateIDConflicts() {
	g := s.grant(domain.ConsentPurposeAIProcessing)
	s.scoped(func(ctx context.Context) {
		s.Require().NoError(s.store.Append(ctx, g))
		s.ErrorIs(s.store.Append(ctx, g), sentinel.ErrConflict)
	})
}

func (s *ConsentStoreSuite) TestErasureCascade() {
	s.scoped(func(ctx context.Context) {
		s.Require().NoError(s.store.Append(ctx, s.grant(domain.ConsentPurposeAIProcessing)))
		s.Require().NoError(s.store.Append(ctx, s.grant(domain.ConsentPurposeAnalytics)))

		n, err := s.store.SoftDeleteByUser(ctx, s.tenant, s.user, s.now)
		s.Require().NoError(err)
		s.Equal(2, n)

		list, err := s.store.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		s.Empty(list)
		_, err = s.store.Latest(ctx, s.tenant, s.user, domain.ConsentPurposeAIProcessing)
		s.ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.RestoreByUser(ctx, s.tenant, s.user))
		list, err = s.store.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		s.Len(list, 2)

		n, err = s.store.HardDeleteByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		s.Equal(2, n)
	})
}

func (s *ConsentStoreSuite) TestCrossTenantAccessRejected() {
	other := domain.TenantID(uuid.New())
	err := s.runner.RunInTenantScope(context.Background(), other, func(ctx context.Context) error {
		_, err := s.store.ListByUser(ctx, s.tenant, s.user)
		return err
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))
}
