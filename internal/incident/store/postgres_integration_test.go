//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/incident/models"
	"rgpdgate/internal/incident/store"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	txcontext "rgpdgate/pkg/platform/tx"
	"rgpdgate/pkg/testutil/containers"
)

type PostgresIncidentSuite struct {
	suite.Suite
	runner *tenancy.PostgresRunner
	store  *store.Postgres
	tenant domain.TenantID
}

func TestPostgresIncidentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresIncidentSuite))
}

func (s *PostgresIncidentSuite) SetupSuite() {
	pg := containers.GetManager().GetPostgres(s.T())
	s.runner = tenancy.NewPostgresRunner(pg.NewPool(s.T(), 1), tenancy.WithAppRole(containers.AppRole))
	s.store = store.NewPostgres()
	s.tenant = domain.TenantID(uuid.New())

	s.Require().NoError(s.runner.RunInPlatformScope(context.Background(), func(ctx context.Context) error {
		tx, err := txcontext.Require(ctx)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO tenants (id, slug, name, created_at) VALUES ($1, $2, 'incident', now())`,
			uuid.UUID(s.tenant), "incident-"+uuid.NewString()[:8])
		return err
	}))
}

func (s *PostgresIncidentSuite) newIncident(tenant domain.TenantID) *models.Incident {
	now := time.Now().UTC().Truncate(time.Microsecond)
	inc, err := models.NewIncident(domain.IncidentID(uuid.New()), models.Input{
		TenantID:       tenant,
		Severity:       models.SeverityHigh,
		Type:           models.TypeCrossTenantAccess,
		RiskLevel:      models.RiskHigh,
		Title:          "Cross tenant read",
		DataCategories: []string{"identity", "usage"},
		UsersAffected:  3,
		DetectedAt:     now.Add(-time.Hour),
	}, now)
	s.Require().NoError(err)
	return inc
}

func (s *PostgresIncidentSuite) TestPlatformWideIncidentRoundTrip() {
	ctx := context.Background()
	inc := s.newIncident(domain.TenantID{})

	s.Require().NoError(s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, inc); err != nil {
			return err
		}
		found, err := s.store.FindByID(ctx, inc.ID)
		if err != nil {
			return err
		}
		s.True(found.PlatformWide())
		s.Equal([]string{"identity", "usage"}, found.DataCategories)
		s.Equal(inc.CnilDeadline(), found.CnilDeadline())

		at := time.Now().UTC().Truncate(time.Microsecond)
		updated, err := s.store.Execute(ctx, inc.ID,
			func(i *models.Incident) error { return i.CanMarkCnilNotified() },
			func(i *models.Incident) { i.ApplyCnilNotified(at) })
		if err != nil {
			return err
		}
		s.Require().NotNil(updated.CnilNotifiedAt)

		_, err = s.store.Execute(ctx, inc.ID,
			func(i *models.Incident) error { return i.CanMarkCnilNotified() },
			func(i *models.Incident) { i.ApplyCnilNotified(at) })
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		return nil
	}))
}

func (s *PostgresIncidentSuite) TestTenantScopeSeesOnlyOwnIncidents() {
	ctx := context.Background()
	own := s.newIncident(s.tenant)
	platformWide := s.newIncident(domain.TenantID{})

	s.Require().NoError(s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, platformWide)
	}))
	s.Require().NoError(s.runner.RunInTenantScope(ctx, s.tenant, func(ctx context.Context) error {
		if err := s.store.Create(ctx, own); err != nil {
			return err
		}
		list, err := s.store.ListByTenant(ctx, s.tenant)
		if err != nil {
			return err
		}
		for _, inc := range list {
			s.Equal(s.tenant, inc.TenantID)
		}
		_, err = s.store.FindByID(ctx, own.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeTenantIsolation))
		return nil
	}))
}
