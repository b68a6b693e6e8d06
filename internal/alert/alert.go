// Package alert fans incident alerts out to notification channels by
// severity. Channels are transports only; they never see the incident record.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/eventguard"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type ChannelName string

const (
	ChannelEmail ChannelName = "email"
	ChannelChat  ChannelName = "chat"
	ChannelPager ChannelName = "pager"
)

// Alert is one notification. Title and Message are for human readers on the
// receiving side and are never logged; Metadata must pass the event guard.
type Alert struct {
	Severity Severity       `json:"severity"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Channel delivers alerts over one transport.
type Channel interface {
	Name() ChannelName
	Send(ctx context.Context, a Alert) error
}

// Route returns the channels an alert of the given severity goes to.
func Route(s Severity) []ChannelName {
	switch s {
	case SeverityCritical:
		return []ChannelName{ChannelEmail, ChannelChat, ChannelPager}
	case SeverityHigh:
		return []ChannelName{ChannelEmail, ChannelChat}
	case SeverityMedium, SeverityLow:
		return []ChannelName{ChannelEmail}
	default:
		return nil
	}
}

// Report lists the channels an alert was routed to and those that failed.
type Report struct {
	Routed []ChannelName
	Failed map[ChannelName]error
}

// OK reports whether every routed channel accepted the alert.
func (r Report) OK() bool { return len(r.Failed) == 0 }

type Metrics interface {
	IncAlertFailure(channel string)
	IncGuardViolation(source string)
}

// Dispatcher sends each alert to its routed channels concurrently.
type Dispatcher struct {
	channels map[ChannelName]Channel
	guard    eventguard.Guard
	logger   *slog.Logger
	metrics  Metrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithGuard(g eventguard.Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

// NewDispatcher registers channels by name; a later channel with the same
// name replaces an earlier one.
func NewDispatcher(channels []Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels: make(map[ChannelName]Channel, len(channels)),
		guard:    eventguard.New(),
	}
	for _, c := range channels {
		d.channels[c.Name()] = c
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var errChannelMissing = errors.New("channel not configured")

// Send routes a by severity. Channel failures are reported, not returned: one
// broken transport must not stop the others. The error is non-nil only when
// the alert itself is invalid.
func (d *Dispatcher) Send(ctx context.Context, a Alert) (Report, error) {
	routed := Route(a.Severity)
	if routed == nil {
		return Report{}, dErrors.New(dErrors.CodeInvalidInput, "unknown alert severity")
	}
	if err := d.guard.AssertSafe("alert.dispatch", a.Metadata); err != nil {
		if d.metrics != nil {
			d.metrics.IncGuardViolation("alert")
		}
		return Report{}, err
	}

	report := Report{Routed: routed, Failed: map[ChannelName]error{}}
	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, name := range routed {
		g.Go(func() error {
			err := d.deliver(ctx, name, a)
			if err != nil {
				mu.Lock()
				report.Failed[name] = err
				mu.Unlock()
			}
			return err
		})
	}
	// Failures are collected per channel above.
	_ = g.Wait()
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, name ChannelName, a Alert) error {
	c, ok := d.channels[name]
	var err error
	if !ok {
		err = errChannelMissing
	} else {
		err = c.Send(ctx, a)
	}
	if err == nil {
		return nil
	}
	if d.metrics != nil {
		d.metrics.IncAlertFailure(string(name))
	}
	if d.logger != nil {
		d.logger.WarnContext(ctx, "alert.delivery.failed",
			"channel", string(name),
			"severity", string(a.Severity),
			"error", err,
		)
	}
	return fmt.Errorf("%s: %w", name, err)
}
