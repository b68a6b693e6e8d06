package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rgpdgate/internal/alert"
	incidentmodels "rgpdgate/internal/incident/models"
	incidentservice "rgpdgate/internal/incident/service"
	legalmodels "rgpdgate/internal/legal/models"
	"rgpdgate/internal/policy"
	tenantmodels "rgpdgate/internal/tenant/models"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/httputil"
)

type TenantService interface {
	CreateTenant(ctx context.Context, slug, name string) (*tenantmodels.Tenant, error)
	GetTenant(ctx context.Context, tenantID domain.TenantID) (*tenantmodels.Tenant, error)
	ListTenants(ctx context.Context) ([]*tenantmodels.Tenant, error)
	SuspendTenant(ctx context.Context, tenantID domain.TenantID, reason string) (*tenantmodels.Tenant, error)
	ReactivateTenant(ctx context.Context, tenantID domain.TenantID) (*tenantmodels.Tenant, error)
	DeleteTenant(ctx context.Context, tenantID domain.TenantID) (*tenantmodels.Tenant, error)
}

type IncidentService interface {
	Create(ctx context.Context, in incidentmodels.Input) (*incidentservice.Registered, error)
	Get(ctx context.Context, id domain.IncidentID) (*incidentservice.View, error)
	NotifyIncident(ctx context.Context, id domain.IncidentID) (alert.Report, error)
	MarkCnilNotified(ctx context.Context, id domain.IncidentID) (*incidentservice.View, error)
	MarkUsersNotified(ctx context.Context, id domain.IncidentID) (*incidentservice.View, error)
	Resolve(ctx context.Context, id domain.IncidentID) (*incidentservice.View, error)
	ListPendingNotifications(ctx context.Context) ([]incidentservice.View, error)
	ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]incidentservice.View, error)
}

type LegalService interface {
	Publish(ctx context.Context, docType legalmodels.DocumentType, version, text string) (*legalmodels.Document, error)
	Accept(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, docType legalmodels.DocumentType) (*legalmodels.Acceptance, error)
	HasAcceptedLatest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, docType legalmodels.DocumentType) (bool, error)
}

var platformResource = policy.Resource{}

// -----------------------------------------------------------------------------
// Tenants
// -----------------------------------------------------------------------------

type createTenantRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, policy.ActionTenantManage, platformResource); !ok {
		return
	}
	var req createTenantRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.svc.Tenants.CreateTenant(r.Context(), req.Slug, req.Name)
	if err != nil {
		h.fail(w, r, "tenant.create.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, policy.ActionTenantManage, platformResource); !ok {
		return
	}
	tenants, err := h.svc.Tenants.ListTenants(r.Context())
	if err != nil {
		h.fail(w, r, "tenant.list.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(w, r, "tenant.get.failed", h.svc.Tenants.GetTenant)
}

func (h *Handler) handleReactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(w, r, "tenant.reactivate.failed", h.svc.Tenants.ReactivateTenant)
}

func (h *Handler) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(w, r, "tenant.delete.failed", h.svc.Tenants.DeleteTenant)
}

type suspendTenantRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleSuspendTenant(w http.ResponseWriter, r *http.Request) {
	var req suspendTenantRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.tenantAction(w, r, "tenant.suspend.failed", func(ctx context.Context, id domain.TenantID) (*tenantmodels.Tenant, error) {
		return h.svc.Tenants.SuspendTenant(ctx, id, req.Reason)
	})
}

func (h *Handler) tenantAction(w http.ResponseWriter, r *http.Request, event string, fn func(context.Context, domain.TenantID) (*tenantmodels.Tenant, error)) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionTenantManage, platformResource); !ok {
		return
	}
	t, err := fn(r.Context(), tenantID)
	if err != nil {
		h.fail(w, r, event, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

// -----------------------------------------------------------------------------
// Incidents
// -----------------------------------------------------------------------------

type createIncidentRequest struct {
	TenantID        *domain.TenantID `json:"tenant_id,omitempty"`
	Severity        string           `json:"severity"`
	Type            string           `json:"type"`
	RiskLevel       string           `json:"risk_level"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	DataCategories  []string         `json:"data_categories,omitempty"`
	UsersAffected   int              `json:"users_affected"`
	RecordsAffected int              `json:"records_affected"`
	DetectedAt      time.Time        `json:"detected_at"`
}

type createIncidentResponse struct {
	incidentservice.View
	AlertsFailed []alert.ChannelName `json:"alerts_failed,omitempty"`
}

func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, policy.ActionIncidentManage, platformResource)
	if !ok {
		return
	}
	var req createIncidentRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	in := incidentmodels.Input{
		Severity:        incidentmodels.Severity(req.Severity),
		Type:            incidentmodels.Type(req.Type),
		RiskLevel:       incidentmodels.RiskLevel(req.RiskLevel),
		Title:           req.Title,
		Description:     req.Description,
		DataCategories:  req.DataCategories,
		UsersAffected:   req.UsersAffected,
		RecordsAffected: req.RecordsAffected,
		DetectedAt:      req.DetectedAt,
	}
	if req.TenantID != nil {
		in.TenantID = *req.TenantID
	}
	if !actor.UserID.IsNil() {
		by := actor.UserID
		in.DetectedBy = &by
	}
	reg, err := h.svc.Incidents.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, "incident.create.failed", err)
		return
	}
	resp := createIncidentResponse{View: reg.View}
	for name := range reg.Alerts.Failed {
		resp.AlertsFailed = append(resp.AlertsFailed, name)
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handlePendingIncidents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, policy.ActionIncidentRead, platformResource); !ok {
		return
	}
	pending, err := h.svc.Incidents.ListPendingNotifications(r.Context())
	if err != nil {
		h.fail(w, r, "incident.pending.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"incidents": pending})
}

func (h *Handler) handleListTenantIncidents(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionIncidentRead, policy.Resource{TenantID: tenantID}); !ok {
		return
	}
	views, err := h.svc.Incidents.ListByTenant(r.Context(), tenantID)
	if err != nil {
		h.fail(w, r, "incident.list.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"incidents": views})
}

func (h *Handler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	h.incidentAction(w, r, policy.ActionIncidentRead, "incident.get.failed", h.svc.Incidents.Get)
}

func (h *Handler) handleCnilNotified(w http.ResponseWriter, r *http.Request) {
	h.incidentAction(w, r, policy.ActionIncidentManage, "incident.cnil_notified.failed", h.svc.Incidents.MarkCnilNotified)
}

func (h *Handler) handleUsersNotified(w http.ResponseWriter, r *http.Request) {
	h.incidentAction(w, r, policy.ActionIncidentManage, "incident.users_notified.failed", h.svc.Incidents.MarkUsersNotified)
}

func (h *Handler) handleResolveIncident(w http.ResponseWriter, r *http.Request) {
	h.incidentAction(w, r, policy.ActionIncidentManage, "incident.resolve.failed", h.svc.Incidents.Resolve)
}

func (h *Handler) incidentAction(w http.ResponseWriter, r *http.Request, action policy.Action, event string, fn func(context.Context, domain.IncidentID) (*incidentservice.View, error)) {
	id, err := domain.ParseIncidentID(chi.URLParam(r, "incidentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, action, platformResource); !ok {
		return
	}
	view, err := fn(r.Context(), id)
	if err != nil {
		h.fail(w, r, event, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

type notifyResponse struct {
	Routed []alert.ChannelName `json:"routed"`
	Failed []alert.ChannelName `json:"failed,omitempty"`
}

func (h *Handler) handleNotifyIncident(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseIncidentID(chi.URLParam(r, "incidentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionIncidentManage, platformResource); !ok {
		return
	}
	report, err := h.svc.Incidents.NotifyIncident(r.Context(), id)
	if err != nil {
		h.fail(w, r, "incident.notify.failed", err)
		return
	}
	resp := notifyResponse{Routed: report.Routed}
	for name := range report.Failed {
		resp.Failed = append(resp.Failed, name)
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusMultiStatus
	}
	httputil.WriteJSON(w, status, resp)
}

// -----------------------------------------------------------------------------
// Legal documents
// -----------------------------------------------------------------------------

type publishRequest struct {
	Version string `json:"version"`
	Text    string `json:"text" sanitize:"keep"`
}

func (h *Handler) handlePublishLegal(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, policy.ActionLegalPublish, platformResource); !ok {
		return
	}
	var req publishRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.svc.Legal.Publish(r.Context(), legalmodels.DocumentType(chi.URLParam(r, "docType")), req.Version, req.Text)
	if err != nil {
		h.fail(w, r, "legal.publish.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleAcceptLegal(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionLegalAccept, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	a, err := h.svc.Legal.Accept(r.Context(), tenantID, userID, legalmodels.DocumentType(chi.URLParam(r, "docType")))
	if err != nil {
		h.fail(w, r, "legal.accept.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleLegalStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionLegalAccept, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	accepted, err := h.svc.Legal.HasAcceptedLatest(r.Context(), tenantID, userID, legalmodels.DocumentType(chi.URLParam(r, "docType")))
	if err != nil {
		h.fail(w, r, "legal.status.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"accepted_latest": accepted})
}
