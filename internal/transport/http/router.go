// Package httptransport exposes the compliance operations over HTTP. Handlers
// decode, authorize and delegate; they hold no business rules.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"rgpdgate/internal/platform/middleware"
	"rgpdgate/internal/policy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/httputil"
	"rgpdgate/pkg/requestcontext"
)

// Authorizer is the policy engine as seen by handlers.
type Authorizer interface {
	Authorize(ctx context.Context, actor domain.Actor, action policy.Action, res policy.Resource) error
}

// Services groups the domain services the router delegates to.
type Services struct {
	Consent    ConsentService
	Suspension SuspensionService
	AI         AIService
	Rgpd       RgpdService
	Review     ReviewService
	Incidents  IncidentService
	Tenants    TenantService
	Legal      LegalService
	Users      UserService
}

type Handler struct {
	svc    Services
	policy Authorizer
	logger *slog.Logger
}

func NewHandler(svc Services, authz Authorizer, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, policy: authz, logger: logger}
}

// RouterConfig carries the edge collaborators that are not domain services.
type RouterConfig struct {
	Validator      middleware.ActorValidator
	Clock          clock.Clock
	Metrics        http.Handler
	RequestTimeout time.Duration
	// Ready backs /readyz. Nil reports ready.
	Ready func(ctx context.Context) error
}

// NewRouter mounts every route. Everything under /api requires a bearer
// token carrying the actor tuple.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestContext(cfg.Clock))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				h.logger.WarnContext(r.Context(), "http.readiness.failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireActor(cfg.Validator, h.logger))

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Post("/users", h.handleRegisterUser)
			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/", h.handleGetUser)

				r.Get("/consents", h.handleListConsents)
				r.Put("/consents/{purpose}", h.handleGrantConsent)
				r.Delete("/consents/{purpose}", h.handleRevokeConsent)

				r.Post("/ai/invocations", h.handleInvokeAI)

				r.Post("/exports", h.handleCreateExport)
				r.Post("/exports/download", h.handleDownloadExport)
				r.Post("/deletion", h.handleRequestDeletion)
				r.Delete("/deletion", h.handleCancelDeletion)

				r.Get("/suspension", h.handleSuspensionHistory)
				r.Post("/suspension", h.handleSuspend)
				r.Delete("/suspension", h.handleUnsuspend)

				r.Post("/{kind}", h.handleFileCase)
				r.Get("/{kind}", h.handleListUserCases)

				r.Post("/legal/{docType}/accept", h.handleAcceptLegal)
				r.Get("/legal/{docType}/status", h.handleLegalStatus)
			})

			r.Get("/reviews/{kind}", h.handleListOpenCases)
			r.Post("/reviews/{kind}/{caseID}/decision", h.handleReviewCase)
			r.Get("/incidents", h.handleListTenantIncidents)
		})

		r.Route("/platform", func(r chi.Router) {
			r.Post("/tenants", h.handleCreateTenant)
			r.Get("/tenants", h.handleListTenants)
			r.Get("/tenants/{tenantID}", h.handleGetTenant)
			r.Post("/tenants/{tenantID}/suspend", h.handleSuspendTenant)
			r.Post("/tenants/{tenantID}/reactivate", h.handleReactivateTenant)
			r.Delete("/tenants/{tenantID}", h.handleDeleteTenant)

			r.Post("/incidents", h.handleCreateIncident)
			r.Get("/incidents/pending", h.handlePendingIncidents)
			r.Get("/incidents/{incidentID}", h.handleGetIncident)
			r.Post("/incidents/{incidentID}/notify", h.handleNotifyIncident)
			r.Post("/incidents/{incidentID}/cnil-notified", h.handleCnilNotified)
			r.Post("/incidents/{incidentID}/users-notified", h.handleUsersNotified)
			r.Post("/incidents/{incidentID}/resolve", h.handleResolveIncident)

			r.Post("/legal/{docType}", h.handlePublishLegal)
		})
	})
	return r
}

// authorize checks the policy table for the request's actor. It writes the
// error response itself and reports whether the handler may continue.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action policy.Action, res policy.Resource) (domain.Actor, bool) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "http.actor.missing", "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing actor"))
		return domain.Actor{}, false
	}
	if err := h.policy.Authorize(ctx, actor, action, res); err != nil {
		httputil.WriteError(w, err)
		return domain.Actor{}, false
	}
	return actor, true
}

// fail logs and writes err. Expected client errors are logged at info.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, event, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.InfoContext(ctx, event, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}

// subject parses the tenant and user path parameters.
func subject(r *http.Request) (domain.TenantID, domain.UserID, error) {
	tenantID, err := domain.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		return domain.TenantID{}, domain.UserID{}, err
	}
	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		return domain.TenantID{}, domain.UserID{}, err
	}
	return tenantID, userID, nil
}

func tenantParam(r *http.Request) (domain.TenantID, error) {
	return domain.ParseTenantID(chi.URLParam(r, "tenantID"))
}

// decode reads a JSON body and trims its string fields.
func decode(r *http.Request, v any) error {
	if err := httputil.DecodeJSON(r, v); err != nil {
		return err
	}
	sanitize(v)
	return nil
}
