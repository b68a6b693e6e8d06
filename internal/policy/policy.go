// Package policy decides whether an authenticated actor may perform an action
// on a resource. The table is fixed in code; there is no runtime rule loading.
package policy

import (
	"context"
	"log/slog"
	"slices"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// Action names an operation exposed at the HTTP edge.
type Action string

const (
	ActionConsentGrant     Action = "consent.grant"
	ActionConsentRevoke    Action = "consent.revoke"
	ActionConsentList      Action = "consent.list"
	ActionAIInvoke         Action = "ai.invoke"
	ActionExportCreate     Action = "export.create"
	ActionExportDownload   Action = "export.download"
	ActionDeletionRequest  Action = "deletion.request"
	ActionDeletionCancel   Action = "deletion.cancel"
	ActionSuspensionToggle Action = "suspension.toggle"
	ActionReviewFile       Action = "review.file"
	ActionReviewDecide     Action = "review.decide"
	ActionReviewList       Action = "review.list"
	ActionIncidentManage   Action = "incident.manage"
	ActionIncidentRead     Action = "incident.read"
	ActionTenantManage     Action = "tenant.manage"
	ActionLegalPublish     Action = "legal.publish"
	ActionLegalAccept      Action = "legal.accept"
	ActionPurgeRun         Action = "purge.run"
	ActionUserRegister     Action = "user.register"
	ActionUserRead         Action = "user.read"
)

// Resource identifies what an action touches. TenantID is nil for
// platform-wide resources; OwnerID is the data subject, when there is one.
type Resource struct {
	TenantID domain.TenantID
	OwnerID  domain.UserID
}

// grant describes who may perform an action.
//
//   - self: MEMBER and TENANT actors may act on their own data
//   - staff: TENANT actors with one of these roles may act on any subject of their tenant
//   - platform: PLATFORM actors may act on any tenant
//   - system: SYSTEM actors (batch jobs) may act
type grant struct {
	self     bool
	staff    []domain.Role
	platform bool
	system   bool
}

var (
	adminOrDPO = []domain.Role{domain.RoleAdmin, domain.RoleDPO}
	adminOnly  = []domain.Role{domain.RoleAdmin}
	dpoOnly    = []domain.Role{domain.RoleDPO}
)

var table = map[Action]grant{
	ActionConsentGrant:     {self: true},
	ActionConsentRevoke:    {self: true},
	ActionConsentList:      {self: true, staff: adminOrDPO},
	ActionAIInvoke:         {self: true},
	ActionExportCreate:     {self: true},
	ActionExportDownload:   {self: true},
	ActionDeletionRequest:  {self: true, staff: dpoOnly},
	ActionDeletionCancel:   {self: true, staff: dpoOnly},
	ActionSuspensionToggle: {self: true, staff: adminOrDPO},
	ActionReviewFile:       {self: true},
	ActionReviewDecide:     {staff: adminOrDPO, platform: true},
	ActionReviewList:       {staff: adminOrDPO, platform: true},
	ActionIncidentManage:   {staff: adminOrDPO, platform: true},
	ActionIncidentRead:     {staff: adminOrDPO, platform: true},
	ActionTenantManage:     {platform: true},
	ActionLegalPublish:     {platform: true},
	ActionLegalAccept:      {self: true},
	ActionPurgeRun:         {platform: true, system: true},
	ActionUserRegister:     {staff: adminOnly, platform: true},
	ActionUserRead:         {self: true, staff: adminOrDPO, platform: true},
}

// Metrics receives denial counts.
type Metrics interface {
	IncPolicyDenied(action string)
}

// Engine evaluates the fixed action table.
type Engine struct {
	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize returns nil when actor may perform action on res.
//
// Errors:
//   - CodeUnauthorized: the actor tuple is malformed
//   - CodeTenantIsolation: a tenant-bound actor targets another tenant, or a platform-wide resource
//   - CodeForbidden: the table does not grant the action to the actor
func (e *Engine) Authorize(ctx context.Context, actor domain.Actor, action Action, res Resource) error {
	err := e.authorize(actor, action, res)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncPolicyDenied(string(action))
		}
		if e.logger != nil {
			e.logger.WarnContext(ctx, "policy.denied",
				"action", string(action),
				"actor_scope", string(actor.Scope),
				"error", err,
			)
		}
	}
	return err
}

func (e *Engine) authorize(actor domain.Actor, action Action, res Resource) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	g, ok := table[action]
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "unknown action")
	}

	switch actor.Scope {
	case domain.ScopePlatform:
		if g.platform {
			return nil
		}
	case domain.ScopeSystem:
		if g.system {
			return nil
		}
	case domain.ScopeTenant, domain.ScopeMember:
		if res.TenantID.IsNil() || res.TenantID != actor.TenantID {
			return dErrors.New(dErrors.CodeTenantIsolation, "resource belongs to another tenant")
		}
		if g.self && !res.OwnerID.IsNil() && res.OwnerID == actor.UserID {
			return nil
		}
		if actor.Scope == domain.ScopeTenant && slices.Contains(g.staff, actor.Role) {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "action not permitted")
}
