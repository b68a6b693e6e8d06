package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	aijobmodels "rgpdgate/internal/aijob/models"
	aijobstore "rgpdgate/internal/aijob/store"
	consentmodels "rgpdgate/internal/consent/models"
	consentservice "rgpdgate/internal/consent/service"
	consentstore "rgpdgate/internal/consent/store"
	"rgpdgate/internal/rgpd/models"
	"rgpdgate/internal/rgpd/service"
	"rgpdgate/internal/rgpd/store"
	suspensionstore "rgpdgate/internal/suspension/store"
	"rgpdgate/internal/tenancy"
	usermodels "rgpdgate/internal/user/models"
	userstore "rgpdgate/internal/user/store"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	auditmemory "rgpdgate/pkg/platform/audit/store/memory"
	"rgpdgate/pkg/platform/bundlecrypt"
	"rgpdgate/pkg/platform/clock"
)

type RgpdSuite struct {
	suite.Suite
	service  *service.Service
	consent  *consentservice.Service
	runner   *tenancy.MemoryRunner
	clock    *clock.Manual
	events   *auditmemory.InMemoryStore
	users    *userstore.InMemory
	consents *consentstore.InMemory
	jobs     *aijobstore.InMemory
	bundles  *store.BundleInMemory
	failOn   audit.EventName
	tenant   domain.TenantID
	user     domain.UserID
}

func TestRgpdSuite(t *testing.T) {
	suite.Run(t, new(RgpdSuite))
}

func (s *RgpdSuite) SetupTest() {
	s.clock = clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	s.runner = tenancy.NewMemoryRunner()
	s.events = auditmemory.NewInMemoryStore()
	s.failOn = ""
	sink := audit.SinkFunc(func(ctx context.Context, e audit.Event) error {
		if e.EventName == s.failOn {
			return errors.New("audit sink unavailable")
		}
		return s.events.Write(ctx, e)
	})
	emitter := audit.NewEmitter(sink, audit.WithClock(s.clock))

	s.users = userstore.NewInMemory()
	s.consents = consentstore.NewInMemory()
	s.jobs = aijobstore.NewInMemory()
	s.bundles = store.NewBundleInMemory(s.clock)

	s.consent = consentservice.New(s.consents, s.runner, emitter, consentservice.WithClock(s.clock))
	s.service = service.New(service.Stores{
		Requests:   store.NewRequestInMemory(),
		Exports:    store.NewExportInMemory(),
		Bundles:    s.bundles,
		Users:      s.users,
		Consents:   s.consents,
		Jobs:       s.jobs,
		Trail:      s.events,
		Actors:     s.events,
		Purgeables: []service.Purgeable{suspensionstore.NewInMemory()},
	}, s.runner, emitter, service.WithClock(s.clock))

	s.tenant = domain.TenantID(uuid.New())
	s.user = s.addUser(s.tenant, "u1@example.test")
}

func (s *RgpdSuite) addUser(tenantID domain.TenantID, email string) domain.UserID {
	u, err := usermodels.NewUser(domain.UserID(uuid.New()), tenantID, email, "Subject", domain.RoleMember, domain.ScopeMember, s.clock.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.runner.RunInTenantScope(context.Background(), tenantID, func(ctx context.Context) error {
		return s.users.Create(ctx, u)
	}))
	return u.ID
}

func (s *RgpdSuite) seedActivity() {
	ctx := context.Background()
	_, err := s.consent.Grant(ctx, s.tenant, s.user, domain.ConsentPurposeAIProcessing)
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)
	_, err = s.consent.Grant(ctx, s.tenant, s.user, domain.ConsentPurposeAnalytics)
	s.Require().NoError(err)

	job, err := aijobmodels.NewJob(domain.AiJobID(uuid.New()), s.tenant, s.user, domain.ConsentPurposeAIProcessing, "stub-llm/v1", s.clock.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.runner.RunInTenantScope(ctx, s.tenant, func(ctx context.Context) error {
		return s.jobs.Create(ctx, job)
	}))
}

func (s *RgpdSuite) inTenant(fn func(ctx context.Context) error) {
	s.Require().NoError(s.runner.RunInTenantScope(context.Background(), s.tenant, fn))
}

// --- Export -----------------------------------------------------------------

func (s *RgpdSuite) TestExportRoundTrip() {
	s.seedActivity()

	var (
		consents []*consentmodels.Record
		jobs     []*aijobmodels.Job
		trail    []audit.Event
	)
	s.inTenant(func(ctx context.Context) error {
		c, err := s.consents.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		consents = c
		j, err := s.jobs.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		jobs = j
		trail, err = s.events.ListBySubject(ctx, s.tenant, s.user, models.MaxExportAuditEvents)
		return err
	})

	result, err := s.service.ExportUserData(context.Background(), s.tenant, s.user)
	s.Require().NoError(err)
	s.NotEmpty(result.DownloadToken)
	s.NotEmpty(result.Password)
	s.Equal(s.clock.Now().Add(models.ExportTTL), result.ExpiresAt)

	env, err := s.service.ReadEncryptedBundle(context.Background(), result.ExportID)
	s.Require().NoError(err)
	plaintext, err := bundlecrypt.Decrypt(env, result.Password)
	s.Require().NoError(err)

	var bundle models.Bundle
	s.Require().NoError(json.Unmarshal(plaintext, &bundle))
	s.Equal(result.ExportID, bundle.ExportID)
	s.Equal(consents, bundle.Consents)
	s.Equal(jobs, bundle.AiJobs)
	s.Equal(trail, bundle.AuditEvents)
	s.Len(bundle.Consents, 2)
	s.Len(bundle.AiJobs, 1)

	_, err = bundlecrypt.Decrypt(env, "not-the-password")
	s.Error(err)

	last := s.events.All()[len(s.events.All())-1]
	s.Equal(audit.EventExportCreated, last.EventName)
	s.Equal(map[string]any{"export_id": result.ExportID.String()}, last.Metadata)
}

func (s *RgpdSuite) TestExportUnknownUser() {
	_, err := s.service.ExportUserData(context.Background(), s.tenant, domain.UserID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Zero(s.bundles.Len())
}

func (s *RgpdSuite) TestDownloadLimit() {
	ctx := context.Background()
	result, err := s.service.ExportUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	for i := 1; i <= models.MaxDownloads; i++ {
		d, err := s.service.DownloadExport(ctx, result.DownloadToken, s.user, s.tenant)
		s.Require().NoError(err, "download %d", i)
		s.Equal(models.MaxDownloads-i, d.DownloadsRemaining)
	}

	_, err = s.service.DownloadExport(ctx, result.DownloadToken, s.user, s.tenant)
	s.True(dErrors.HasCode(err, dErrors.CodeLimitExceeded))

	downloaded := 0
	for _, name := range s.events.Names() {
		if name == audit.EventExportDownloaded {
			downloaded++
		}
	}
	s.Equal(models.MaxDownloads, downloaded)
}

func (s *RgpdSuite) TestDownloadAfterExpiryRemovesArtifact() {
	ctx := context.Background()
	result, err := s.service.ExportUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	s.clock.Advance(models.ExportTTL + time.Second)

	_, err = s.service.DownloadExport(ctx, result.DownloadToken, s.user, s.tenant)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	_, err = s.service.ReadEncryptedBundle(ctx, result.ExportID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(s.events.Names(), audit.EventExportExpired)

	_, err = s.service.DownloadExport(ctx, result.DownloadToken, s.user, s.tenant)
	s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
}

func (s *RgpdSuite) TestDownloadAccessDenied() {
	ctx := context.Background()
	result, err := s.service.ExportUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	otherTenant := domain.TenantID(uuid.New())
	cases := map[string]struct {
		token  string
		user   domain.UserID
		tenant domain.TenantID
	}{
		"unknown token":     {"bogus", s.user, s.tenant},
		"empty token":       {"", s.user, s.tenant},
		"other user":        {result.DownloadToken, s.addUser(s.tenant, "u2@example.test"), s.tenant},
		"other tenant":      {result.DownloadToken, s.user, otherTenant},
		"other tenant user": {result.DownloadToken, s.addUser(otherTenant, "u3@example.test"), otherTenant},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			_, err := s.service.DownloadExport(ctx, tc.token, tc.user, tc.tenant)
			s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied), "got %v", err)
		})
	}

	d, err := s.service.DownloadExport(ctx, result.DownloadToken, s.user, s.tenant)
	s.Require().NoError(err)
	s.Equal(models.MaxDownloads-1, d.DownloadsRemaining)
}

func (s *RgpdSuite) TestSweepExpiredExports() {
	ctx := context.Background()
	_, err := s.service.ExportUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	n, err := s.service.SweepExpiredExports(ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.clock.Advance(models.ExportTTL + time.Minute)
	n, err = s.service.SweepExpiredExports(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Zero(s.bundles.Len())

	n, err = s.service.SweepExpiredExports(ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RgpdSuite) TestExpiryKeepsBundleWhenScopeFails() {
	ctx := context.Background()
	downloaded, err := s.service.ExportUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	_, err = s.service.ExportUserData(ctx, s.tenant, s.addUser(s.tenant, "u4@example.test"))
	s.Require().NoError(err)
	s.clock.Advance(models.ExportTTL + time.Minute)
	s.failOn = audit.EventExportExpired

	_, err = s.service.DownloadExport(ctx, downloaded.DownloadToken, s.user, s.tenant)
	s.Require().Error(err)
	s.False(dErrors.HasCode(err, dErrors.CodeExpired))
	s.Equal(2, s.bundles.Len())

	_, err = s.service.SweepExpiredExports(ctx)
	s.Require().Error(err)
	s.Equal(2, s.bundles.Len())
}

// --- Deletion ---------------------------------------------------------------

func (s *RgpdSuite) TestDeleteIsIdempotentWhilePending() {
	ctx := context.Background()
	first, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, first.Status)
	s.Equal(s.clock.Now().Add(models.PurgeDelay), *first.ScheduledPurgeAt)

	s.clock.Advance(time.Hour)
	second, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(first.ScheduledPurgeAt, second.ScheduledPurgeAt)

	requested := 0
	for _, name := range s.events.Names() {
		if name == audit.EventDeletionRequested {
			requested++
		}
	}
	s.Equal(1, requested)
}

func (s *RgpdSuite) TestDeleteCascadesSoftDelete() {
	s.seedActivity()
	ctx := context.Background()

	_, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	s.inTenant(func(ctx context.Context) error {
		_, err := s.users.FindByID(ctx, s.tenant, s.user)
		s.Error(err)
		consents, err := s.consents.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		s.Empty(consents)
		jobs, err := s.jobs.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		s.Empty(jobs)
		return nil
	})

	err = s.consent.Check(ctx, s.tenant, s.user, domain.ConsentPurposeAIProcessing)
	s.True(dErrors.HasCode(err, dErrors.CodeConsentRequired))
}

func (s *RgpdSuite) TestDeleteUnknownUser() {
	_, err := s.service.DeleteUserData(context.Background(), s.tenant, domain.UserID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RgpdSuite) TestCancelDeletionRestores() {
	s.seedActivity()
	ctx := context.Background()

	_, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	cancelled, err := s.service.CancelDeletion(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Status)

	s.Require().NoError(s.consent.Check(ctx, s.tenant, s.user, domain.ConsentPurposeAIProcessing))

	_, err = s.service.CancelDeletion(ctx, s.tenant, s.user)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	again, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	s.NotEqual(cancelled.ID, again.ID)
}

// --- Purge ------------------------------------------------------------------

func (s *RgpdSuite) TestPurgeWaitsForSchedule() {
	ctx := context.Background()
	_, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	s.clock.Advance(models.PurgeDelay - time.Hour)
	report, err := s.service.PurgeDue(ctx)
	s.Require().NoError(err)
	s.Zero(report.Due)
}

func (s *RgpdSuite) TestPurgeHardDeletesAndCompletes() {
	s.seedActivity()
	ctx := context.Background()

	export, err := s.service.ExportUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	req, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	s.clock.Advance(models.PurgeDelay)
	report, err := s.service.PurgeDue(ctx)
	s.Require().NoError(err)
	s.Equal(service.PurgeReport{Due: 1, Purged: 1}, report)

	done, err := s.service.GetRequest(ctx, s.tenant, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.NotNil(done.CompletedAt)

	_, err = s.service.ReadEncryptedBundle(ctx, export.ExportID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.inTenant(func(ctx context.Context) error {
		trail, err := s.events.ListBySubject(ctx, s.tenant, s.user, 0)
		s.Require().NoError(err)
		s.Empty(trail, "audit references to the subject are anonymised")
		s.Require().NoError(s.consents.RestoreByUser(ctx, s.tenant, s.user))
		consents, err := s.consents.ListByUser(ctx, s.tenant, s.user)
		s.Require().NoError(err)
		s.Empty(consents, "restore after purge has nothing to bring back")
		return err
	})
	s.Contains(s.events.Names(), audit.EventDeletionCompleted)

	again, err := s.service.PurgeDue(ctx)
	s.Require().NoError(err)
	s.Zero(again.Due)

	_, err = s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RgpdSuite) TestPurgeSkipsCancelledRequest() {
	ctx := context.Background()
	_, err := s.service.DeleteUserData(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	_, err = s.service.CancelDeletion(ctx, s.tenant, s.user)
	s.Require().NoError(err)

	s.clock.Advance(models.PurgeDelay + time.Hour)
	report, err := s.service.PurgeDue(ctx)
	s.Require().NoError(err)
	s.Zero(report.Purged)

	s.inTenant(func(ctx context.Context) error {
		_, err := s.users.FindByID(ctx, s.tenant, s.user)
		return err
	})
}
