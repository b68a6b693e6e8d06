//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/consent/models"
	"rgpdgate/internal/consent/store"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	txcontext "rgpdgate/pkg/platform/tx"
	"rgpdgate/pkg/testutil/containers"
)

type PostgresConsentSuite struct {
	suite.Suite
	runner  *tenancy.PostgresRunner
	store   *store.Postgres
	tenantA domain.TenantID
	tenantB domain.TenantID
}

func TestPostgresConsentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresConsentSuite))
}

func (s *PostgresConsentSuite) SetupSuite() {
	pg := containers.GetManager().GetPostgres(s.T())
	s.runner = tenancy.NewPostgresRunner(pg.NewPool(s.T(), 1), tenancy.WithAppRole(containers.AppRole))
	s.store = store.NewPostgres()
	s.tenantA = domain.TenantID(uuid.New())
	s.tenantB = domain.TenantID(uuid.New())

	err := s.runner.RunInPlatformScope(context.Background(), func(ctx context.Context) error {
		tx, err := txcontext.Require(ctx)
		if err != nil {
			return err
		}
		for _, id := range []domain.TenantID{s.tenantA, s.tenantB} {
			if _, err := tx.Exec(ctx, `INSERT INTO tenants (id, slug, name, created_at) VALUES ($1, $2, 'consent', now())`,
				uuid.UUID(id), "consent-"+uuid.NewString()[:8]); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresConsentSuite) TestLatestUsesSequenceNotTimestamp() {
	user := domain.UserID(uuid.New())
	now := time.Now().UTC()
	g := models.NewGrant(domain.ConsentID(uuid.New()), s.tenantA, user, domain.ConsentPurposeAIProcessing, now)
	r := models.NewRevocation(domain.ConsentID(uuid.New()), g, now)

	err := s.runner.RunInTenantScope(context.Background(), s.tenantA, func(ctx context.Context) error {
		if err := s.store.Append(ctx, g); err != nil {
			return err
		}
		if err := s.store.Append(ctx, r); err != nil {
			return err
		}
		latest, err := s.store.Latest(ctx, s.tenantA, user, domain.ConsentPurposeAIProcessing)
		if err != nil {
			return err
		}
		s.Equal(r.ID, latest.ID)
		s.False(latest.IsEffective())
		return nil
	})
	s.Require().NoError(err)
}

// A tenant B scope on the same single-connection pool never sees tenant A's
// history, whichever order the scopes run in.
func (s *PostgresConsentSuite) TestInterleavedTenantsOnSharedConnection() {
	user := domain.UserID(uuid.New())
	err := s.runner.RunInTenantScope(context.Background(), s.tenantA, func(ctx context.Context) error {
		return s.store.Append(ctx, models.NewGrant(domain.ConsentID(uuid.New()), s.tenantA, user, domain.ConsentPurposeAnalytics, time.Now().UTC()))
	})
	s.Require().NoError(err)

	for range 3 {
		err = s.runner.RunInTenantScope(context.Background(), s.tenantB, func(ctx context.Context) error {
			tx, err := txcontext.Require(ctx)
			if err != nil {
				return err
			}
			var n int
			if err := tx.QueryRow(ctx, `SELECT count(*) FROM consents WHERE user_id = $1`, uuid.UUID(user)).Scan(&n); err != nil {
				return err
			}
			s.Zero(n)
			return nil
		})
		s.Require().NoError(err)

		err = s.runner.RunInTenantScope(context.Background(), s.tenantA, func(ctx context.Context) error {
			list, err := s.store.ListByUser(ctx, s.tenantA, user)
			if err != nil {
				return err
			}
			s.Len(list, 1)
			return nil
		})
		s.Require().NoError(err)
	}
}
