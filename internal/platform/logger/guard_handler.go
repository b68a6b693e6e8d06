package logger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/eventguard"
)

// ViolationEvent is the message of the record written in place of a rejected one.
const ViolationEvent = "log.guard.violation"

// GuardHandler validates each record with the event guard before delegating.
// Groups are flattened into dotted keys, and pre-bound attributes are checked
// with every record. Error values are reduced to their error code so internal
// error text never reaches the output.
//
// A rejected record is dropped. A replacement record carrying only the rule
// (and the field name when that is itself safe) is written to the root
// handler, and Handle returns the violation.
type GuardHandler struct {
	root    slog.Handler
	next    slog.Handler
	guard   eventguard.Guard
	counter ViolationCounter
	bound   map[string]any
	prefix  string
}

func NewGuardHandler(next slog.Handler, guard eventguard.Guard, counter ViolationCounter) *GuardHandler {
	return &GuardHandler{
		root:    next,
		next:    next,
		guard:   guard,
		counter: counter,
		bound:   map[string]any{},
	}
}

func (h *GuardHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *GuardHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.bound)+r.NumAttrs())
	for k, v := range h.bound {
		fields[k] = v
	}

	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		a = sanitize(a)
		flatten(fields, h.prefix, a)
		clean.AddAttrs(a)
		return true
	})

	if err := h.guard.AssertSafe(r.Message, fields); err != nil {
		h.reportViolation(ctx, r, err)
		return err
	}
	return h.next.Handle(ctx, clean)
}

func (h *GuardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	cleaned := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		a = sanitize(a)
		flatten(clone.bound, h.prefix, a)
		cleaned = append(cleaned, a)
	}
	clone.next = h.next.WithAttrs(cleaned)
	return clone
}

func (h *GuardHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = joinKey(h.prefix, name)
	clone.next = h.next.WithGroup(name)
	return clone
}

func (h *GuardHandler) clone() *GuardHandler {
	bound := make(map[string]any, len(h.bound))
	for k, v := range h.bound {
		bound[k] = v
	}
	return &GuardHandler{
		root:    h.root,
		next:    h.next,
		guard:   h.guard,
		counter: h.counter,
		bound:   bound,
		prefix:  h.prefix,
	}
}

func (h *GuardHandler) reportViolation(ctx context.Context, r slog.Record, err error) {
	if h.counter != nil {
		h.counter.IncGuardViolation("log")
	}

	rec := slog.NewRecord(r.Time, slog.LevelError, ViolationEvent, r.PC)
	var v *eventguard.Violation
	if !errors.As(err, &v) {
		rec.AddAttrs(slog.String("rule", "unknown"))
		_ = h.root.Handle(ctx, rec)
		return
	}
	rec.AddAttrs(slog.String("rule", string(v.Rule)))
	if v.Rule != eventguard.RuleEventName {
		rec.AddAttrs(slog.String("event", r.Message))
	}
	if v.Field != "" && h.guard.AssertSafe(ViolationEvent, map[string]any{"field": v.Field}) == nil {
		rec.AddAttrs(slog.String("field", v.Field))
	}
	_ = h.root.Handle(ctx, rec)
}

// sanitize replaces error values with their code, recursing into groups.
func sanitize(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = sanitize(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, string(dErrors.CodeOf(err)))
		}
	}
	return a
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = joinKey(prefix, a.Key)
		}
		for _, ga := range a.Value.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[joinKey(prefix, a.Key)] = a.Value.Any()
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.Join([]string{prefix, key}, ".")
}
