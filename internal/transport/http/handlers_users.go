package httptransport

import (
	"context"
	"net/http"

	"rgpdgate/internal/policy"
	usermodels "rgpdgate/internal/user/models"
	userservice "rgpdgate/internal/user/service"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/httputil"
)

type UserService interface {
	Register(ctx context.Context, in userservice.RegisterInput) (*usermodels.User, error)
	Get(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*usermodels.User, error)
}

type registerUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// handleRegisterUser creates a tenant-bound account. ADMIN and DPO accounts
// get TENANT scope; everyone else is a MEMBER.
func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionUserRegister, policy.Resource{TenantID: tenantID}); !ok {
		return
	}
	var req registerUserRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleMember
	}
	scope := domain.ScopeMember
	switch role {
	case domain.RoleAdmin, domain.RoleDPO:
		scope = domain.ScopeTenant
	case domain.RoleMember:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown role"))
		return
	}

	u, err := h.svc.Users.Register(r.Context(), userservice.RegisterInput{
		TenantID:    tenantID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        role,
		Scope:       scope,
	})
	if err != nil {
		h.fail(w, r, "user.register.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := subject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.authorize(w, r, policy.ActionUserRead, policy.Resource{TenantID: tenantID, OwnerID: userID}); !ok {
		return
	}
	u, err := h.svc.Users.Get(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, r, "user.get.failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}
