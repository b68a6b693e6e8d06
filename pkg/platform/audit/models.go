package audit

import (
	"context"
	"time"

	"rgpdgate/pkg/domain"
)

// EventName is a dotted, lower-case audit event identifier.
type EventName string

const (
	EventConsentGranted EventName = "consent.granted"
	EventConsentRevoked EventName = "consent.revoked"

	EventAIInvocationRequested EventName = "ai.invocation.requested"
	EventAIJobStatusChanged    EventName = "ai.job.status_changed"

	EventExportCreated     EventName = "rgpd.export.created"
	EventExportDownloaded  EventName = "rgpd.export.downloaded"
	EventExportExpired     EventName = "rgpd.export.expired"
	EventDeletionRequested EventName = "rgpd.deletion.requested"
	EventDeletionCancelled EventName = "rgpd.deletion.cancelled"
	EventDeletionCompleted EventName = "rgpd.deletion.completed"
	EventSuspensionEnabled EventName = "rgpd.suspension.enabled"
	EventSuspensionLifted  EventName = "rgpd.suspension.disabled"

	EventDisputeCreated     EventName = "rgpd.dispute.created"
	EventDisputeReviewed    EventName = "rgpd.dispute.reviewed"
	EventOppositionCreated  EventName = "rgpd.opposition.created"
	EventOppositionReviewed EventName = "rgpd.opposition.reviewed"

	EventIncidentCreated       EventName = "incident.created"
	EventIncidentCnilNotified  EventName = "incident.cnil_notified"
	EventIncidentUsersNotified EventName = "incident.users_notified"
	EventIncidentResolved      EventName = "incident.resolved"

	EventTenantCreated     EventName = "tenant.created"
	EventTenantSuspended   EventName = "tenant.suspended"
	EventTenantReactivated EventName = "tenant.reactivated"
	EventTenantDeleted     EventName = "tenant.deleted"

	EventLegalPublished EventName = "legal.version.published"
	EventLegalAccepted  EventName = "legal.version.accepted"
)

// Event is an immutable audit record. Metadata holds flat, safe scalars only;
// the emitter rejects anything else before it reaches a sink.
type Event struct {
	ID         domain.EventID    `json:"id"`
	EventName  EventName         `json:"event_name"`
	ActorScope domain.ActorScope `json:"actor_scope"`
	ActorID    domain.UserID     `json:"actor_id"`
	TenantID   domain.TenantID   `json:"tenant_id"`
	TargetID   string            `json:"target_id,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink persists audit events. Implementations are append-only.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Reader returns the audit events concerning one data subject: events they
// performed or events targeting them, newest first, at most limit.
type Reader interface {
	ListBySubject(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, limit int) ([]Event, error)
}

// Anonymizer clears actor references to an erased user. It is used only by
// the purge job; the compliance trail itself is retained.
type Anonymizer interface {
	AnonymizeActor(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error
}

// AnonymizeAll runs every anonymizer in order and stops at the first failure.
func AnonymizeAll(anonymizers ...Anonymizer) Anonymizer {
	return anonymizeAll(anonymizers)
}

type anonymizeAll []Anonymizer

func (as anonymizeAll) AnonymizeActor(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	for _, a := range as {
		if err := a.AnonymizeActor(ctx, tenantID, userID); err != nil {
			return err
		}
	}
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Write(ctx context.Context, event Event) error { return f(ctx, event) }

// Fanout writes to every sink in order and stops at the first failure.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, event Event) error {
		for _, s := range sinks {
			if err := s.Write(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}
