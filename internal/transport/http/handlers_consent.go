package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	aimodels "rgpdgate/internal/aijob/models"
	aiservice "rgpdgate/internal/aijob/service"
	consentmodels "rgpdgate/internal/consent/models"
	"rgpdgate/internal/policy"
	suspensionmodels "rgpdgate/internal/suspension/models"
	suspensionservice "rgpdgate/internal/suspension/service"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/httputil"
)

type ConsentService interface {
	Grant(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*consentmodels.Record, error)
	Revoke(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*consentmodels.Record, error)
	List(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*consentmodels.Record, error)
}

type SuspensionService interface {
	Toggle(ctx context.Context, in suspensionservice.ToggleInput) (*suspensionmodels.Record, error)
	Unsuspend(ctx context.Context, tenantID domain.TenantID, userID, requestedBy domain.UserID, notes string) (*suspensionmodels.Record, error)
	History(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*suspensionmodels.Record, error)
}

type AIService interface {
	Invoke(ctx context.Context, in aiservice.InvokeInput) (*aimodels.Job, error)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	h.consentChange(w, r, policy.ActionConsentGrant, "consent.grant.failed", h.svc.Consent.Grant)
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	h.consentChange(w, r, policy.ActionConsentRevoke, "consent.revoke.failed", h.svc.Consent.Revoke)
}

type consentFunc func(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*consentmodels.Record, error)

func (h *Handler) consentChange(w http.ResponseWriter, r *http.Request, action policy.Action, event string, fn consentFunc) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, action, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	purpose, err := domain.ParseConsentPurpose(chi.URLParam(r, "purpose"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := fn(r.Context(), tenantID, userID, purpose)
	if err != nil {
		h.fail(w, r, event, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionConsentList, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	records, err := h.svc.Consent.List(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, r, "consent.list.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": records})
}

type invokeRequest struct {
	Purpose  string `json:"purpose"`
	ModelRef string `json:"model_ref"`
}

func (h *Handler) handleInvokeAI(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionAIInvoke, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	var req invokeRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	purpose, err := domain.ParseConsentPurpose(req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	job, err := h.svc.AI.Invoke(r.Context(), aiservice.InvokeInput{
		TenantID: tenantID,
		UserID:   userID,
		Purpose:  purpose,
		ModelRef: req.ModelRef,
	})
	if err != nil {
		h.fail(w, r, "ai.invoke.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, job)
}

type suspendRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, ok := h.authorize(w, r, policy.ActionSuspensionToggle, policy.Resource{TenantID: tenantID, OwnerID: userID})
	if !ok {
		return
	}
	var req suspendRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svc.Suspension.Toggle(r.Context(), suspensionservice.ToggleInput{
		TenantID:    tenantID,
		UserID:      userID,
		Reason:      suspensionmodels.Reason(req.Reason),
		RequestedBy: requester(actor, userID),
		Notes:       req.Notes,
	})
	if err != nil {
		h.fail(w, r, "suspension.toggle.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type unsuspendRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (h *Handler) handleUnsuspend(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, ok := h.authorize(w, r, policy.ActionSuspensionToggle, policy.Resource{TenantID: tenantID, OwnerID: userID})
	if !ok {
		return
	}
	var req unsuspendRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	rec, err := h.svc.Suspension.Unsuspend(r.Context(), tenantID, userID, requester(actor, userID), req.Notes)
	if err != nil {
		h.fail(w, r, "suspension.lift.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSuspensionHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionSuspensionToggle, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	history, err := h.svc.Suspension.History(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, r, "suspension.history.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": history})
}

// requester is the acting user, or the subject when the actor has no user
// identity (SYSTEM).
func requester(actor domain.Actor, subject domain.UserID) domain.UserID {
	if actor.UserID.IsNil() {
		return subject
	}
	return actor.UserID
}
