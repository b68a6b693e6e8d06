// Package service is the security incident registry: it records incidents,
// fans alerts out by severity and tracks the CNIL and data subject
// notification follow-ups. Incidents are platform records and every write
// runs in the platform scope.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rgpdgate/internal/alert"
	"rgpdgate/internal/incident/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

var tracer = otel.Tracer("rgpdgate/internal/incident")

type Store interface {
	Create(ctx context.Context, inc *models.Incident) error
	FindByID(ctx context.Context, id domain.IncidentID) (*models.Incident, error)
	Execute(ctx context.Context, id domain.IncidentID, validate func(*models.Incident) error, mutate func(*models.Incident)) (*models.Incident, error)
	ListUnresolved(ctx context.Context) ([]*models.Incident, error)
	ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]*models.Incident, error)
}

// Alerter delivers an alert to the channels its severity routes to.
type Alerter interface {
	Send(ctx context.Context, a alert.Alert) (alert.Report, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncIncidentCreated(severity string)
}

type Service struct {
	incidents      Store
	runner         tenancy.Runner
	audit          AuditEmitter
	alerts         Alerter
	clock          clock.Clock
	logger         *slog.Logger
	metrics        Metrics
	usersThreshold int
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithUsersNotificationThreshold sets how many affected users a HIGH risk
// incident must exceed before data subjects have to be told (Art. 34).
func WithUsersNotificationThreshold(n int) Option {
	return func(s *Service) { s.usersThreshold = n }
}

func New(incidents Store, runner tenancy.Runner, emitter AuditEmitter, alerts Alerter, opts ...Option) *Service {
	s := &Service{
		incidents: incidents,
		runner:    runner,
		audit:     emitter,
		alerts:    alerts,
		clock:     clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is an incident with its notification assessment at read time.
type View struct {
	Incident   *models.Incident  `json:"incident"`
	Assessment models.Assessment `json:"assessment"`
}

// Registered is the outcome of Create. Alerts reports per-channel delivery;
// a failed channel does not undo the registration.
type Registered struct {
	View
	Alerts alert.Report `json:"-"`
}

// Create validates and records an incident, audits it, then alerts.
func (s *Service) Create(ctx context.Context, in models.Input) (*Registered, error) {
	ctx, span := tracer.Start(ctx, "incident.create", trace.WithAttributes(
		attribute.String("severity", string(in.Severity)),
		attribute.String("risk_level", string(in.RiskLevel)),
	))
	defer span.End()

	now := s.clock.Now()
	inc, err := models.NewIncident(domain.IncidentID(uuid.New()), in, now)
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	assessment := inc.Assess(now, s.usersThreshold)

	err = s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		if err := s.incidents.Create(ctx, inc); err != nil {
			return wrap(err, "failed to record incident")
		}
		return s.audit.Emit(ctx, audit.Event{
			EventName: audit.EventIncidentCreated,
			TenantID:  inc.TenantID,
			TargetID:  inc.ID.String(),
			Metadata: map[string]any{
				"incident_id":      inc.ID.String(),
				"severity":         string(inc.Severity),
				"type":             string(inc.Type),
				"risk_level":       string(inc.RiskLevel),
				"users_affected":   inc.UsersAffected,
				"records_affected": inc.RecordsAffected,
				"cnil_required":    assessment.CnilRequired,
				"users_required":   assessment.UsersRequired,
				"cnil_deadline":    assessment.CnilDeadline.Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncIncidentCreated(string(inc.Severity))
	}

	report, err := s.dispatch(ctx, inc)
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "incident.alert.rejected", "incident_id", inc.ID.String(), "error", err)
	}
	return &Registered{View: View{Incident: inc, Assessment: assessment}, Alerts: report}, nil
}

// NotifyIncident re-sends the alert for a recorded incident.
func (s *Service) NotifyIncident(ctx context.Context, id domain.IncidentID) (alert.Report, error) {
	ctx, span := tracer.Start(ctx, "incident.notify")
	defer span.End()

	inc, err := s.find(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return alert.Report{}, err
	}
	return s.dispatch(ctx, inc)
}

func (s *Service) dispatch(ctx context.Context, inc *models.Incident) (alert.Report, error) {
	metadata := map[string]any{
		"incident_id":    inc.ID.String(),
		"type":           string(inc.Type),
		"risk_level":     string(inc.RiskLevel),
		"users_affected": inc.UsersAffected,
		"cnil_required":  inc.IsCnilNotificationRequired(),
		"cnil_deadline":  inc.CnilDeadline().Format(time.RFC3339),
	}
	if !inc.PlatformWide() {
		metadata["tenant_id"] = inc.TenantID.String()
	}
	report, err := s.alerts.Send(ctx, alert.Alert{
		Severity: alert.Severity(inc.Severity),
		Title:    inc.Title,
		Message: fmt.Sprintf("%s incident, %s risk, %d users affected. CNIL deadline %s.",
			inc.Type, inc.RiskLevel, inc.UsersAffected, inc.CnilDeadline().Format(time.RFC3339)),
		Metadata: metadata,
	})
	if err != nil {
		return report, err
	}
	if !report.OK() && s.logger != nil {
		s.logger.WarnContext(ctx, "incident.alert.partial",
			"incident_id", inc.ID.String(),
			"routed", len(report.Routed),
			"failed", len(report.Failed),
		)
	}
	return report, nil
}

// MarkCnilNotified records the supervisory authority notification. It can be
// recorded once.
func (s *Service) MarkCnilNotified(ctx context.Context, id domain.IncidentID) (*View, error) {
	return s.followUp(ctx, id, audit.EventIncidentCnilNotified,
		(*models.Incident).CanMarkCnilNotified, (*models.Incident).ApplyCnilNotified)
}

// MarkUsersNotified records that affected data subjects were informed.
func (s *Service) MarkUsersNotified(ctx context.Context, id domain.IncidentID) (*View, error) {
	return s.followUp(ctx, id, audit.EventIncidentUsersNotified,
		(*models.Incident).CanMarkUsersNotified, (*models.Incident).ApplyUsersNotified)
}

// Resolve closes an incident. The record is kept.
func (s *Service) Resolve(ctx context.Context, id domain.IncidentID) (*View, error) {
	return s.followUp(ctx, id, audit.EventIncidentResolved,
		(*models.Incident).CanResolve, (*models.Incident).ApplyResolve)
}

func (s *Service) followUp(ctx context.Context, id domain.IncidentID, event audit.EventName,
	validate func(*models.Incident) error, apply func(*models.Incident, time.Time)) (*View, error) {
	now := s.clock.Now()
	var out *models.Incident
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		inc, err := s.incidents.Execute(ctx, id, validate, func(i *models.Incident) { apply(i, now) })
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "incident not found")
			}
			return wrap(err, "failed to update incident")
		}
		out = inc
		return s.audit.Emit(ctx, audit.Event{
			EventName: event,
			TenantID:  inc.TenantID,
			TargetID:  inc.ID.String(),
			Metadata: map[string]any{
				"incident_id": inc.ID.String(),
				"recorded_at": now.Format(time.RFC3339),
				"overdue":     now.After(inc.CnilDeadline()),
			},
		})
	})
	if err != nil {
		if s.logger != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.logger.InfoContext(ctx, "incident.follow_up.rejected",
				"incident_id", id.String(), "event_name", string(event))
		}
		return nil, err
	}
	return &View{Incident: out, Assessment: out.Assess(now, s.usersThreshold)}, nil
}

func (s *Service) Get(ctx context.Context, id domain.IncidentID) (*View, error) {
	inc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &View{Incident: inc, Assessment: inc.Assess(s.clock.Now(), s.usersThreshold)}, nil
}

// ListPendingNotifications returns unresolved incidents still owing a CNIL
// notification: overdue first, then approaching, then by deadline.
func (s *Service) ListPendingNotifications(ctx context.Context) ([]View, error) {
	var incidents []*models.Incident
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		list, err := s.incidents.ListUnresolved(ctx)
		if err != nil {
			return wrap(err, "failed to list incidents")
		}
		incidents = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	pending := models.PendingNotifications(incidents, now)
	out := make([]View, 0, len(pending))
	for _, inc := range pending {
		out = append(out, View{Incident: inc, Assessment: inc.Assess(now, s.usersThreshold)})
	}
	return out, nil
}

// ListByTenant returns the incidents attached to one tenant.
func (s *Service) ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]View, error) {
	var incidents []*models.Incident
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		list, err := s.incidents.ListByTenant(ctx, tenantID)
		if err != nil {
			return wrap(err, "failed to list incidents")
		}
		incidents = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]View, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, View{Incident: inc, Assessment: inc.Assess(now, s.usersThreshold)})
	}
	return out, nil
}

func (s *Service) find(ctx context.Context, id domain.IncidentID) (*models.Incident, error) {
	var out *models.Incident
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		inc, err := s.incidents.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "incident not found")
			}
			return wrap(err, "failed to read incident")
		}
		out = inc
		return nil
	})
	return out, err
}

func wrap(err error, msg string) error {
	var coded dErrors.Coder
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
