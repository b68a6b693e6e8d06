package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/legal/models"
	"rgpdgate/internal/legal/service"
	"rgpdgate/internal/legal/store"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	auditmemory "rgpdgate/pkg/platform/audit/store/memory"
	"rgpdgate/pkg/platform/clock"
)

type LegalSuite struct {
	suite.Suite
	service *service.Service
	events  *auditmemory.InMemoryStore
	clock   *clock.Manual
	tenant  domain.TenantID
	user    domain.UserID
}

func TestLegalSuite(t *testing.T) {
	suite.Run(t, new(LegalSuite))
}

func (s *LegalSuite) SetupTest() {
	s.clock = clock.NewManual(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	s.events = auditmemory.NewInMemoryStore()
	emitter := audit.NewEmitter(s.events, audit.WithClock(s.clock))
	s.service = service.New(store.NewInMemory(), tenancy.NewMemoryRunner(), emitter, service.WithClock(s.clock))
	s.tenant = domain.TenantID(uuid.New())
	s.user = domain.UserID(uuid.New())
}

func (s *LegalSuite) publish(version string) *models.Document {
	doc, err := s.service.Publish(context.Background(), models.TypePrivacyPolicy, version, "Privacy policy wording "+version)
	s.Require().NoError(err)
	return doc
}

func (s *LegalSuite) TestPublishRequiresIncreasingVersion() {
	s.publish("1.0.0")
	s.publish("1.1.0")

	_, err := s.service.Publish(context.Background(), models.TypePrivacyPolicy, "1.1.0", "again")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.service.Publish(context.Background(), models.TypePrivacyPolicy, "1.0.5", "older")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	other, err := s.service.Publish(context.Background(), models.TypeTermsOfService, "1.0.0", "terms")
	s.Require().NoError(err)
	s.Equal("1.0.0", other.Version)
}

func (s *LegalSuite) TestPublishRejectsInvalidSemver() {
	_, err := s.service.Publish(context.Background(), models.TypePrivacyPolicy, "next", "x")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.events.All())
}

func (s *LegalSuite) TestSemverPrecedenceNotLexical() {
	s.publish("1.9.0")
	s.publish("1.10.0")

	doc, err := s.service.Current(context.Background(), s.tenant, models.TypePrivacyPolicy)
	s.Require().NoError(err)
	s.Equal("1.10.0", doc.Version)
}

func (s *LegalSuite) TestAcceptLatestAndNewVersion() {
	ctx := context.Background()
	s.publish("1.0.0")

	ok, err := s.service.HasAcceptedLatest(ctx, s.tenant, s.user, models.TypePrivacyPolicy)
	s.Require().NoError(err)
	s.False(ok)

	first, err := s.service.Accept(ctx, s.tenant, s.user, models.TypePrivacyPolicy)
	s.Require().NoError(err)
	again, err := s.service.Accept(ctx, s.tenant, s.user, models.TypePrivacyPolicy)
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)

	ok, err = s.service.HasAcceptedLatest(ctx, s.tenant, s.user, models.TypePrivacyPolicy)
	s.Require().NoError(err)
	s.True(ok)

	s.publish("2.0.0")
	ok, err = s.service.HasAcceptedLatest(ctx, s.tenant, s.user, models.TypePrivacyPolicy)
	s.Require().NoError(err)
	s.False(ok)

	s.Equal([]audit.EventName{
		audit.EventLegalPublished,
		audit.EventLegalAccepted,
		audit.EventLegalPublished,
	}, s.events.Names())
}

func (s *LegalSuite) TestAcceptWithoutPublishedVersion() {
	_, err := s.service.Accept(context.Background(), s.tenant, s.user, models.TypeCookiePolicy)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	ok, err := s.service.HasAcceptedLatest(context.Background(), s.tenant, s.user, models.TypeCookiePolicy)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *LegalSuite) TestAcceptanceAuditCarriesVersionOnly() {
	doc := s.publish("3.1.4")
	_, err := s.service.Accept(context.Background(), s.tenant, s.user, models.TypePrivacyPolicy)
	s.Require().NoError(err)

	events := s.events.All()
	last := events[len(events)-1]
	s.Equal(s.user.String(), last.TargetID)
	s.Equal(map[string]any{
		"legal_doc_id": doc.ID.String(),
		"legal_type":   "privacy_policy",
		"version":      "3.1.4",
	}, last.Metadata)
}
