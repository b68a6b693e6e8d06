package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rgpdgate/internal/policy"
	reviewmodels "rgpdgate/internal/review/models"
	reviewservice "rgpdgate/internal/review/service"
	rgpdmodels "rgpdgate/internal/rgpd/models"
	rgpdservice "rgpdgate/internal/rgpd/service"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/httputil"
)

type RgpdService interface {
	ExportUserData(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*rgpdmodels.ExportResult, error)
	DownloadExport(ctx context.Context, token string, userID domain.UserID, tenantID domain.TenantID) (*rgpdservice.Download, error)
	DeleteUserData(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*rgpdmodels.Request, error)
	CancelDeletion(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*rgpdmodels.Request, error)
}

type ReviewService interface {
	File(ctx context.Context, in reviewservice.FileInput) (*reviewmodels.Case, error)
	Review(ctx context.Context, tenantID domain.TenantID, kind reviewmodels.Kind, id domain.CaseID, r reviewmodels.Review) (*reviewmodels.Case, error)
	ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, kind reviewmodels.Kind) ([]*reviewmodels.Case, error)
	ListOpen(ctx context.Context, tenantID domain.TenantID, kind reviewmodels.Kind) ([]*reviewmodels.Case, error)
	ListOverdue(ctx context.Context, tenantID domain.TenantID, kind reviewmodels.Kind) ([]*reviewmodels.Case, error)
}

// handleCreateExport returns the download token and bundle password once;
// neither is stored in clear.
func (h *Handler) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionExportCreate, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	res, err := h.svc.Rgpd.ExportUserData(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, r, "rgpd.export.failed", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusCreated, res)
}

type downloadRequest struct {
	Token string `json:"token"`
}

type downloadResponse struct {
	ExportID           domain.ExportID `json:"export_id"`
	DownloadsRemaining int             `json:"downloads_remaining"`
	Ciphertext         string          `json:"ciphertext"`
	IV                 string          `json:"iv"`
	AuthTag            string          `json:"authTag"`
	Salt               string          `json:"salt"`
}

func (h *Handler) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionExportDownload, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	var req downloadRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	dl, err := h.svc.Rgpd.DownloadExport(r.Context(), req.Token, userID, tenantID)
	if err != nil {
		h.fail(w, r, "rgpd.export.download.failed", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, downloadResponse{
		ExportID:           dl.ExportID,
		DownloadsRemaining: dl.DownloadsRemaining,
		Ciphertext:         dl.Envelope.Ciphertext,
		IV:                 dl.Envelope.IV,
		AuthTag:            dl.Envelope.AuthTag,
		Salt:               dl.Envelope.Salt,
	})
}

func (h *Handler) handleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionDeletionRequest, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	req, err := h.svc.Rgpd.DeleteUserData(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, r, "rgpd.deletion.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, req)
}

func (h *Handler) handleCancelDeletion(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionDeletionCancel, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	req, err := h.svc.Rgpd.CancelDeletion(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, r, "rgpd.deletion.cancel.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

// kindParam maps the plural path segment to a case kind.
func kindParam(r *http.Request) (reviewmodels.Kind, error) {
	switch chi.URLParam(r, "kind") {
	case "disputes":
		return reviewmodels.KindDispute, nil
	case "oppositions":
		return reviewmodels.KindOpposition, nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "unknown case kind")
}

type fileCaseRequest struct {
	Reason        string `json:"reason"`
	SubjectRef    string `json:"subject_ref,omitempty"`
	HasAttachment bool   `json:"has_attachment"`
}

func (h *Handler) handleFileCase(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionReviewFile, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	var req fileCaseRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.Review.File(r.Context(), reviewservice.FileInput{
		TenantID:      tenantID,
		UserID:        userID,
		Kind:          kind,
		Reason:        req.Reason,
		SubjectRef:    req.SubjectRef,
		HasAttachment: req.HasAttachment,
	})
	if err != nil {
		h.fail(w, r, "review.file.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListUserCases(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionReviewFile, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	cases, err := h.svc.Review.ListByUser(r.Context(), tenantID, userID, kind)
	if err != nil {
		h.fail(w, r, "review.list.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

// handleListOpenCases lists open cases; ?overdue=true narrows to cases past
// their response deadline.
func (h *Handler) handleListOpenCases(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionReviewList, policy.Resource{TenantID: tenantID}); !ok {
		return
	}
	list := h.svc.Review.ListOpen
	if r.URL.Query().Get("overdue") == "true" {
		list = h.svc.Review.ListOverdue
	}
	cases, err := list(r.Context(), tenantID, kind)
	if err != nil {
		h.fail(w, r, "review.list.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

type reviewRequest struct {
	Status        string `json:"status"`
	AdminResponse string `json:"admin_response,omitempty"`
}

func (h *Handler) handleReviewCase(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, ok := h.authorize(w, r, policy.ActionReviewDecide, policy.Resource{TenantID: tenantID})
	if !ok {
		return
	}
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.Review.Review(r.Context(), tenantID, kind, caseID, reviewmodels.Review{
		Status:        reviewmodels.Status(req.Status),
		AdminResponse: req.AdminResponse,
		ReviewedBy:    actor.UserID,
	})
	if err != nil {
		h.fail(w, r, "review.decide.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
