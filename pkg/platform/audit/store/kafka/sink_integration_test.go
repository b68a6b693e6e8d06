//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"rgpdgate/internal/platform/config"
	platformkafka "rgpdgate/internal/platform/kafka"
	"rgpdgate/pkg/domain"
	audit "rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/audit/store/kafka"
	"rgpdgate/pkg/testutil/containers"
)

func TestSink_RoundTripThroughBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redpanda integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{
		Brokers:    rp.Broker,
		AuditTopic: "rgpd.audit." + uuid.NewString()[:8],
		Partitions: 1,
		ClientID:   "rgpdgate-test",
	}
	producer, err := platformkafka.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	require.NoError(t, platformkafka.EnsureTopic(ctx, producer, cfg, nil))
	// a second call is a no-op
	require.NoError(t, platformkafka.EnsureTopic(ctx, producer, cfg, nil))

	tenantID := domain.TenantID(uuid.New())
	sink := kafka.NewSink(producer, cfg.AuditTopic)
	require.NoError(t, sink.Write(ctx, audit.Event{
		ID:         domain.EventID(uuid.New()),
		EventName:  audit.EventExportCreated,
		TenantID:   tenantID,
		Metadata:   map[string]any{"export_id": uuid.NewString()},
		OccurredAt: time.Now().UTC(),
	}))

	consumer := rp.NewClient(t, kgo.ConsumeTopics(cfg.AuditTopic), kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	fetches := consumer.PollRecords(ctx, 1)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	require.Equal(t, tenantID.String(), string(records[0].Key))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	require.Equal(t, string(audit.EventExportCreated), decoded["event_name"])
}
