package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/eventguard"
	"rgpdgate/pkg/requestcontext"
)

// Metrics is the instrumentation the emitter reports to.
type Metrics interface {
	IncAuditEmitted(eventName string)
	IncGuardViolation(source string)
	IncAuditWriteFailure()
}

// Emitter validates events with the guard and writes them to a sink with
// fail-closed semantics: a rejected or failed write is returned to the caller,
// which must fail its own operation.
type Emitter struct {
	sink    Sink
	guard   eventguard.Guard
	clock   clock.Clock
	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Emitter)

func WithGuard(g eventguard.Guard) Option {
	return func(e *Emitter) { e.guard = g }
}

func WithClock(c clock.Clock) Option {
	return func(e *Emitter) { e.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) { e.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(e *Emitter) { e.metrics = m }
}

// NewEmitter returns an Emitter writing to sink with the heuristic guard and
// the system clock unless overridden.
func NewEmitter(sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		sink:  sink,
		guard: eventguard.New(),
		clock: clock.System{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit assigns an ID and OccurredAt when absent, attributes the event to the
// request's actor (or SYSTEM) when no scope is set, runs the guard over the
// envelope and every metadata entry, then writes. Nothing is written when the
// guard rejects the event.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if event.ID.IsNil() {
		event.ID = domain.EventID(uuid.New())
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.clock.Now()
	}
	if event.ActorScope == "" {
		event.ActorScope = domain.ScopeSystem
		if actor, ok := requestcontext.Actor(ctx); ok {
			event.ActorScope = actor.Scope
			if event.ActorID.IsNil() {
				event.ActorID = actor.UserID
			}
		}
	}

	if err := e.check(event); err != nil {
		if e.metrics != nil {
			e.metrics.IncGuardViolation("audit")
		}
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit.guard.rejected", "rule", violationRule(err))
		}
		return err
	}

	if err := e.sink.Write(ctx, event); err != nil {
		if e.metrics != nil {
			e.metrics.IncAuditWriteFailure()
		}
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit.write.failed",
				"event_name", string(event.EventName),
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit write failed")
	}

	if e.metrics != nil {
		e.metrics.IncAuditEmitted(string(event.EventName))
	}
	return nil
}

func (e *Emitter) check(event Event) error {
	envelope := map[string]any{
		"id":          event.ID.String(),
		"actor_scope": string(event.ActorScope),
	}
	if !event.ActorID.IsNil() {
		envelope["actor_id"] = event.ActorID.String()
	}
	if !event.TenantID.IsNil() {
		envelope["tenant_id"] = event.TenantID.String()
	}
	if event.TargetID != "" {
		envelope["target_id"] = event.TargetID
	}
	name := string(event.EventName)
	if err := e.guard.AssertSafe(name, envelope); err != nil {
		return err
	}
	return e.guard.AssertSafe(name, event.Metadata)
}

func violationRule(err error) string {
	var v *eventguard.Violation
	if errors.As(err, &v) {
		return string(v.Rule)
	}
	return "unknown"
}
