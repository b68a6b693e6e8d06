package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rgpdgate/internal/suspension/models"
	"rgpdgate/internal/suspension/service"
	"rgpdgate/internal/suspension/store"
	"rgpdgate/internal/tenancy"
	usermodels "rgpdgate/internal/user/models"
	userstore "rgpdgate/internal/user/store"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	auditmemory "rgpdgate/pkg/platform/audit/store/memory"
	"rgpdgate/pkg/platform/clock"
)

type SuspensionServiceSuite struct {
	suite.Suite
	service *service.Service
	events  *auditmemory.InMemoryStore
	clock   *clock.Manual
	tenant  domain.TenantID
	user    domain.UserID
	admin   domain.UserID
}

func TestSuspensionServiceSuite(t *testing.T) {
	suite.Run(t, new(SuspensionServiceSuite))
}

func (s *SuspensionServiceSuite) SetupTest() {
	users := userstore.NewInMemory()
	runner := tenancy.NewMemoryRunner()
	s.events = auditmemory.NewInMemoryStore()
	s.clock = clock.NewManual(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	s.service = service.New(users, store.NewInMemory(), runner,
		audit.NewEmitter(s.events, audit.WithClock(s.clock)),
		service.WithClock(s.clock),
	)
	s.tenant = domain.TenantID(uuid.New())
	s.admin = domain.UserID(uuid.New())

	u, err := usermodels.NewUser(domain.UserID(uuid.New()), s.tenant, "subject@example.test", "Subject", domain.RoleMember, domain.ScopeMember, s.clock.Now())
	s.Require().NoError(err)
	s.user = u.ID
	s.Require().NoError(runner.RunInTenantScope(context.Background(), s.tenant, func(ctx context.Context) error {
		return users.Create(ctx, u)
	}))
}

func (s *SuspensionServiceSuite) toggle(notes string) (*models.Record, error) {
	return s.service.Toggle(context.Background(), service.ToggleInput{
		TenantID:    s.tenant,
		UserID:      s.user,
		Reason:      models.ReasonAccuracyContested,
		RequestedBy: s.admin,
		Notes:       notes,
	})
}

func (s *SuspensionServiceSuite) requireDenial(err error, want models.DenialReason) {
	s.T().Helper()
	var de *models.DataSuspensionError
	s.Require().True(errors.As(err, &de), "expected DataSuspensionError, got %v", err)
	s.Equal(want, de.Reason)
}

func (s *SuspensionServiceSuite) TestGateFollowsToggle() {
	ctx := context.Background()
	s.Require().NoError(s.service.Check(ctx, s.tenant, s.user))

	_, err := s.toggle("disputed address")
	s.Require().NoError(err)
	s.requireDenial(s.service.Check(ctx, s.tenant, s.user), models.DenialSuspended)

	_, err = s.service.Unsuspend(ctx, s.tenant, s.user, s.admin, "")
	s.Require().NoError(err)
	s.NoError(s.service.Check(ctx, s.tenant, s.user))

	s.Equal([]audit.EventName{audit.EventSuspensionEnabled, audit.EventSuspensionLifted}, s.events.Names())
}

func (s *SuspensionServiceSuite) TestUnknownUserIsDenied() {
	err := s.service.Check(context.Background(), s.tenant, domain.UserID(uuid.New()))
	s.requireDenial(err, models.DenialUserNotFound)
	s.True(dErrors.HasCode(err, dErrors.CodeProcessingSuspended))
}

func (s *SuspensionServiceSuite) TestStateErrors() {
	ctx := context.Background()

	s.Run("unsuspend when not suspended", func() {
		_, err := s.service.Unsuspend(ctx, s.tenant, s.user, s.admin, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("double suspend", func() {
		_, err := s.toggle("")
		s.Require().NoError(err)
		_, err = s.toggle("")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *SuspensionServiceSuite) TestValidation() {
	s.Run("notes over 1000 characters", func() {
		_, err := s.toggle(strings.Repeat("n", models.MaxNotesLength+1))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("notes at the limit", func() {
		_, err := s.toggle(strings.Repeat("n", models.MaxNotesLength))
		s.NoError(err)
	})

	s.Run("unknown reason", func() {
		_, err := s.service.Toggle(context.Background(), service.ToggleInput{
			TenantID: s.tenant, UserID: s.user, Reason: "whim", RequestedBy: s.admin,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *SuspensionServiceSuite) TestHistoryRecordsEachToggle() {
	ctx := context.Background()
	_, err := s.toggle("first")
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)
	_, err = s.service.Unsuspend(ctx, s.tenant, s.user, s.admin, "resolved")
	s.Require().NoError(err)

	history, err := s.service.History(ctx, s.tenant, s.user)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.True(history[0].Suspended)
	s.False(history[1].Suspended)
	s.Equal(models.ReasonAccuracyContested, history[1].Reason)
}

func (s *SuspensionServiceSuite) TestNotesNeverReachAudit() {
	_, err := s.toggle("contacted at jane@example.com")
	s.Require().NoError(err)
	for _, e := range s.events.All() {
		s.Equal(true, e.Metadata["has_notes"])
		s.NotContains(e.Metadata, "notes")
	}
}
