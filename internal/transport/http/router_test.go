package httptransport_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rgpdgate/internal/alert"
	consentmodels "rgpdgate/internal/consent/models"
	incidentmodels "rgpdgate/internal/incident/models"
	incidentservice "rgpdgate/internal/incident/service"
	jwttoken "rgpdgate/internal/jwt_token"
	"rgpdgate/internal/policy"
	reviewmodels "rgpdgate/internal/review/models"
	rgpdmodels "rgpdgate/internal/rgpd/models"
	rgpdservice "rgpdgate/internal/rgpd/service"
	httptransport "rgpdgate/internal/transport/http"
	"rgpdgate/internal/transport/http/mocks"
	usermodels "rgpdgate/internal/user/models"
	userservice "rgpdgate/internal/user/service"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/bundlecrypt"
	"rgpdgate/pkg/testutil"
)

//go:generate mockgen -source=handlers_consent.go -destination=mocks/consent_mocks.go -package=mocks ConsentService
//go:generate mockgen -source=handlers_rgpd.go -destination=mocks/rgpd_mocks.go -package=mocks RgpdService,ReviewService
//go:generate mockgen -source=handlers_platform.go -destination=mocks/incident_mocks.go -package=mocks IncidentService
//go:generate mockgen -source=handlers_users.go -destination=mocks/user_mocks.go -package=mocks UserService

type RouterSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	consent   *mocks.MockConsentService
	rgpd      *mocks.MockRgpdService
	reviews   *mocks.MockReviewService
	incidents *mocks.MockIncidentService
	users     *mocks.MockUserService
	jwt       *jwttoken.JWTService
	router    http.Handler
	tenant    domain.TenantID
	user      domain.UserID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.consent = mocks.NewMockConsentService(s.ctrl)
	s.rgpd = mocks.NewMockRgpdService(s.ctrl)
	s.reviews = mocks.NewMockReviewService(s.ctrl)
	s.incidents = mocks.NewMockIncidentService(s.ctrl)
	s.users = mocks.NewMockUserService(s.ctrl)
	s.jwt = jwttoken.NewJWTService("test-signing-key-with-enough-bytes", "rgpdgate-test")
	s.tenant = domain.TenantID(uuid.New())
	s.user = domain.UserID(uuid.New())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := httptransport.NewHandler(httptransport.Services{
		Consent:   s.consent,
		Rgpd:      s.rgpd,
		Review:    s.reviews,
		Incidents: s.incidents,
		Users:     s.users,
	}, policy.New(), logger)
	s.router = httptransport.NewRouter(h, httptransport.RouterConfig{Validator: s.jwt})
}

func (s *RouterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RouterSuite) token(actor domain.Actor) string {
	tok, err := s.jwt.IssueToken(actor, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) member() string {
	return s.token(domain.Actor{TenantID: s.tenant, UserID: s.user, Scope: domain.ScopeMember, Role: domain.RoleMember})
}

func (s *RouterSuite) platform() string {
	return s.token(domain.Actor{UserID: domain.UserID(uuid.New()), Scope: domain.ScopePlatform, Role: domain.RoleAdmin})
}

func (s *RouterSuite) do(method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]any) {
	return testutil.Do(s.T(), s.router, testutil.NewRequest(s.T(), method, path, bearer, body))
}

func (s *RouterSuite) userPath(suffix string) string {
	return "/api/tenants/" + s.tenant.String() + "/users/" + s.user.String() + suffix
}

// =============================================================================
// Authentication and policy
// =============================================================================

func (s *RouterSuite) TestHealthzIsPublic() {
	resp, body := s.do(http.MethodGet, "/healthz", "", "")
	s.Equal(http.StatusOK, resp.Code)
	s.Equal("ok", body["status"])
}

func (s *RouterSuite) TestReadyzWithoutProbe() {
	resp, body := s.do(http.MethodGet, "/readyz", "", "")
	s.Equal(http.StatusOK, resp.Code)
	s.Equal("ready", body["status"])
}

func (s *RouterSuite) TestMissingBearerIsUnauthorized() {
	resp, body := s.do(http.MethodGet, s.userPath("/consents"), "", "")
	s.Equal(http.StatusUnauthorized, resp.Code)
	s.Equal("unauthorized", body["error"])
}

func (s *RouterSuite) TestForeignTenantIsAccessDeniedWithoutDetail() {
	other := s.token(domain.Actor{TenantID: domain.TenantID(uuid.New()), UserID: s.user, Scope: domain.ScopeMember, Role: domain.RoleMember})

	resp, body := s.do(http.MethodGet, s.userPath("/consents"), other, "")
	s.Equal(http.StatusForbidden, resp.Code)
	s.Equal("access_denied", body["error"])
	s.NotContains(body, "error_description")
}

func (s *RouterSuite) TestMemberCannotActForAnotherUser() {
	peer := s.token(domain.Actor{TenantID: s.tenant, UserID: domain.UserID(uuid.New()), Scope: domain.ScopeMember, Role: domain.RoleMember})

	resp, body := s.do(http.MethodPut, s.userPath("/consents/ai_processing"), peer, "")
	s.Equal(http.StatusForbidden, resp.Code)
	s.Equal("forbidden", body["error"])
}

// =============================================================================
// Consent
// =============================================================================

func (s *RouterSuite) TestGrantConsent() {
	now := time.Now().UTC()
	s.consent.EXPECT().Grant(gomock.Any(), s.tenant, s.user, domain.ConsentPurposeAIProcessing).
		Return(&consentmodels.Record{Purpose: domain.ConsentPurposeAIProcessing, Granted: true, GrantedAt: &now}, nil)

	resp, body := s.do(http.MethodPut, s.userPath("/consents/ai_processing"), s.member(), "")
	s.Equal(http.StatusOK, resp.Code)
	s.Equal(true, body["granted"])
}

func (s *RouterSuite) TestGrantUnknownPurpose() {
	resp, body := s.do(http.MethodPut, s.userPath("/consents/profiling"), s.member(), "")
	s.Equal(http.StatusBadRequest, resp.Code)
	s.Equal("invalid_input", body["error"])
}

// =============================================================================
// Exports and deletion
// =============================================================================

func (s *RouterSuite) TestCreateExportIsNotCached() {
	s.rgpd.EXPECT().ExportUserData(gomock.Any(), s.tenant, s.user).Return(&rgpdmodels.ExportResult{
		ExportID:      domain.ExportID(uuid.New()),
		DownloadToken: "tok",
		Password:      "pw",
		ExpiresAt:     time.Now().Add(rgpdmodels.ExportTTL),
	}, nil)

	resp, body := s.do(http.MethodPost, s.userPath("/exports"), s.member(), "")
	s.Equal(http.StatusCreated, resp.Code)
	s.Equal("no-store", resp.Header().Get("Cache-Control"))
	s.Equal("tok", body["download_token"])
}

func (s *RouterSuite) TestDownloadExport() {
	s.rgpd.EXPECT().DownloadExport(gomock.Any(), "tok", s.user, s.tenant).Return(&rgpdservice.Download{
		ExportID:           domain.ExportID(uuid.New()),
		Envelope:           bundlecrypt.Envelope{Ciphertext: "c", IV: "i", AuthTag: "a", Salt: "s"},
		DownloadsRemaining: 2,
	}, nil)

	resp, body := s.do(http.MethodPost, s.userPath("/exports/download"), s.member(), `{"token":" tok "}`)
	s.Equal(http.StatusOK, resp.Code)
	s.Equal(float64(2), body["downloads_remaining"])
	s.Equal("a", body["authTag"])
}

func (s *RouterSuite) TestDownloadErrorsMapToStatus() {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{dErrors.New(dErrors.CodeExpired, "export expired"), http.StatusGone, "expired"},
		{dErrors.New(dErrors.CodeLimitExceeded, "download limit reached"), http.StatusTooManyRequests, "limit_exceeded"},
		{dErrors.New(dErrors.CodeAccessDenied, "access denied"), http.StatusForbidden, "access_denied"},
		{errors.New("redis: connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		s.rgpd.EXPECT().DownloadExport(gomock.Any(), "tok", s.user, s.tenant).Return(nil, tt.err)
		resp, body := s.do(http.MethodPost, s.userPath("/exports/download"), s.member(), `{"token":"tok"}`)
		s.Equal(tt.status, resp.Code)
		s.Equal(tt.code, body["error"])
		desc, _ := body["error_description"].(string)
		s.NotContains(desc, "redis")
	}
}

func (s *RouterSuite) TestRequestDeletion() {
	purgeAt := time.Now().Add(rgpdmodels.PurgeDelay)
	s.rgpd.EXPECT().DeleteUserData(gomock.Any(), s.tenant, s.user).Return(&rgpdmodels.Request{
		Type:             rgpdmodels.RequestDelete,
		Status:           rgpdmodels.StatusPending,
		ScheduledPurgeAt: &purgeAt,
	}, nil)

	resp, body := s.do(http.MethodPost, s.userPath("/deletion"), s.member(), "")
	s.Equal(http.StatusAccepted, resp.Code)
	s.Equal("PENDING", body["status"])
}

// =============================================================================
// Incidents
// =============================================================================

func (s *RouterSuite) TestReviewDecisionCarriesPathKind() {
	admin := s.token(domain.Actor{TenantID: s.tenant, UserID: s.user, Scope: domain.ScopeTenant, Role: domain.RoleAdmin})
	caseID := domain.CaseID(uuid.New())
	path := "/api/tenants/" + s.tenant.String() + "/reviews/disputes/" + caseID.String() + "/decision"

	s.reviews.EXPECT().
		Review(gomock.Any(), s.tenant, reviewmodels.KindDispute, caseID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "case not found"))

	resp, body := s.do(http.MethodPost, path, admin, `{"status":"under_review"}`)
	s.Equal(http.StatusNotFound, resp.Code)
	s.Equal("not_found", body["error"])
}

func (s *RouterSuite) TestMemberCannotCreateIncident() {
	resp, _ := s.do(http.MethodPost, "/api/platform/incidents", s.member(), `{}`)
	s.Equal(http.StatusForbidden, resp.Code)
}

func (s *RouterSuite) TestPlatformCreatesIncident() {
	detected := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, in incidentmodels.Input) (*incidentservice.Registered, error) {
			s.Equal(incidentmodels.SeverityCritical, in.Severity)
			s.Equal("Leaked backup", in.Title)
			s.True(detected.Equal(in.DetectedAt))
			s.NotNil(in.DetectedBy)
			inc := &incidentmodels.Incident{ID: domain.IncidentID(uuid.New()), DetectedAt: in.DetectedAt, RiskLevel: in.RiskLevel}
			return &incidentservice.Registered{
				View:   incidentservice.View{Incident: inc, Assessment: inc.Assess(detected, 0)},
				Alerts: alert.Report{Routed: alert.Route(alert.SeverityCritical), Failed: map[alert.ChannelName]error{alert.ChannelPager: errors.New("down")}},
			}, nil
		})

	resp, body := s.do(http.MethodPost, "/api/platform/incidents", s.platform(), `{
		"severity": "CRITICAL", "type": "DATA_LEAK", "risk_level": "CRITICAL",
		"title": "  Leaked backup ", "detected_at": "2025-01-01T00:00:00Z"}`)
	s.Equal(http.StatusCreated, resp.Code)
	s.Equal([]any{"pager"}, body["alerts_failed"])
	assessment := body["assessment"].(map[string]any)
	s.Equal("2025-01-04T00:00:00Z", assessment["cnil_deadline"])
}

func (s *RouterSuite) TestNotifyPartialFailure() {
	id := domain.IncidentID(uuid.New())
	s.incidents.EXPECT().NotifyIncident(gomock.Any(), id).Return(alert.Report{
		Routed: alert.Route(alert.SeverityHigh),
		Failed: map[alert.ChannelName]error{alert.ChannelChat: errors.New("timeout")},
	}, nil)

	resp, body := s.do(http.MethodPost, "/api/platform/incidents/"+id.String()+"/notify", s.platform(), "")
	s.Equal(http.StatusMultiStatus, resp.Code)
	s.Equal([]any{"chat"}, body["failed"])
}

func (s *RouterSuite) TestTenantAdminListsOwnIncidents() {
	admin := s.token(domain.Actor{TenantID: s.tenant, UserID: s.user, Scope: domain.ScopeTenant, Role: domain.RoleAdmin})
	s.incidents.EXPECT().ListByTenant(gomock.Any(), s.tenant).Return([]incidentservice.View{}, nil)

	resp, _ := s.do(http.MethodGet, "/api/tenants/"+s.tenant.String()+"/incidents", admin, "")
	s.Equal(http.StatusOK, resp.Code)
}

// =============================================================================
// Users
// =============================================================================

func (s *RouterSuite) TestAdminRegistersDPOWithTenantScope() {
	admin := s.token(domain.Actor{TenantID: s.tenant, UserID: s.user, Scope: domain.ScopeTenant, Role: domain.RoleAdmin})
	s.users.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, in userservice.RegisterInput) (*usermodels.User, error) {
			s.Equal(s.tenant, in.TenantID)
			s.Equal(domain.RoleDPO, in.Role)
			s.Equal(domain.ScopeTenant, in.Scope)
			s.Equal("dpo@example.test", in.Email)
			return &usermodels.User{ID: domain.UserID(uuid.New()), TenantID: in.TenantID, Role: in.Role, Scope: in.Scope}, nil
		})

	resp, body := s.do(http.MethodPost, "/api/tenants/"+s.tenant.String()+"/users", admin,
		`{"email":" dpo@example.test ","display_name":"Dana","role":"DPO"}`)
	s.Equal(http.StatusCreated, resp.Code)
	s.Equal("TENANT", body["scope"])
	s.NotContains(body, "email")
}

func (s *RouterSuite) TestRegisterRejectsUnknownRole() {
	admin := s.token(domain.Actor{TenantID: s.tenant, UserID: s.user, Scope: domain.ScopeTenant, Role: domain.RoleAdmin})
	resp, _ := s.do(http.MethodPost, "/api/tenants/"+s.tenant.String()+"/users", admin, `{"email":"a@b.test","role":"ROOT"}`)
	s.Equal(http.StatusBadRequest, resp.Code)
}

func (s *RouterSuite) TestMemberCannotRegisterUsers() {
	resp, _ := s.do(http.MethodPost, "/api/tenants/"+s.tenant.String()+"/users", s.member(), `{"email":"a@b.test"}`)
	s.Equal(http.StatusForbidden, resp.Code)
}

func (s *RouterSuite) TestMemberReadsOwnAccount() {
	s.users.EXPECT().Get(gomock.Any(), s.tenant, s.user).Return(&usermodels.User{ID: s.user, TenantID: s.tenant}, nil)
	resp, body := s.do(http.MethodGet, s.userPath(""), s.member(), "")
	s.Equal(http.StatusOK, resp.Code)
	s.Equal(s.user.String(), body["id"])
}
