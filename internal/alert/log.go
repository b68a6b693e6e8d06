package alert

import (
	"context"
	"log/slog"
)

// LogChannel writes alerts to the structured log. It is the fallback when no
// broker is configured. Title and Message are dropped.
type LogChannel struct {
	name   ChannelName
	logger *slog.Logger
}

func NewLogChannel(name ChannelName, logger *slog.Logger) *LogChannel {
	return &LogChannel{name: name, logger: logger}
}

func (c *LogChannel) Name() ChannelName { return c.name }

func (c *LogChannel) Send(ctx context.Context, a Alert) error {
	attrs := make([]any, 0, 2+2*len(a.Metadata))
	attrs = append(attrs, "channel", string(c.name), "severity", string(a.Severity))
	for k, v := range a.Metadata {
		attrs = append(attrs, k, v)
	}
	c.logger.WarnContext(ctx, "alert.raised", attrs...)
	return nil
}
