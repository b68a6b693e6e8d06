package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"rgpdgate/internal/platform/config"
)

// Publisher is the part of *nats.Conn the channel needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSChannel publishes alerts as JSON on <prefix>.<channel>. A notification
// worker behind the broker owns the email, chat and pager integrations.
type NATSChannel struct {
	name    ChannelName
	subject string
	conn    Publisher
}

func NewNATSChannel(conn Publisher, prefix string, name ChannelName) *NATSChannel {
	return &NATSChannel{name: name, subject: prefix + "." + string(name), conn: conn}
}

func (c *NATSChannel) Name() ChannelName { return c.name }

func (c *NATSChannel) Subject() string { return c.subject }

func (c *NATSChannel) Send(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return c.conn.Publish(c.subject, payload)
}

// Connect dials NATS with unlimited reconnects. Returns nil, nil when no URL
// is configured.
func Connect(cfg config.NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts := []nats.Option{
		nats.Name("rgpdgate-alerts"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if logger != nil && err != nil {
				logger.Warn("nats.disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			if logger != nil {
				logger.Info("nats.reconnected")
			}
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Channels builds the three routed channels over one connection.
func Channels(conn Publisher, prefix string) []Channel {
	return []Channel{
		NewNATSChannel(conn, prefix, ChannelEmail),
		NewNATSChannel(conn, prefix, ChannelChat),
		NewNATSChannel(conn, prefix, ChannelPager),
	}
}
