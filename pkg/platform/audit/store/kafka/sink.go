// Package kafka streams audit events to a Kafka topic for downstream
// retention and SIEM consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"rgpdgate/pkg/domain"
	audit "rgpdgate/pkg/platform/audit"
)

// ActorAnonymized is the event_name header of the record asking consumers
// to drop every reference to one erased subject from the events they keep.
const ActorAnonymized = "rgpd.audit.actor_anonymized"

type anonymization struct {
	EventName string `json:"event_name"`
	TenantID  string `json:"tenant_id"`
	SubjectID string `json:"subject_id"`
}

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink publishes each event synchronously, keyed by tenant so a tenant's
// events stay ordered within one partition.
type Sink struct {
	producer Producer
	topic    string
}

func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

func (s *Sink) Write(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := s.produce(ctx, event.TenantID, string(event.EventName), value); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// AnonymizeActor publishes an anonymization record on the same partition as
// the subject's events, after them. Mirrored records are immutable, so
// consumers apply it to what they retain.
func (s *Sink) AnonymizeActor(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	value, err := json.Marshal(anonymization{
		EventName: ActorAnonymized,
		TenantID:  tenantID.String(),
		SubjectID: userID.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal anonymization: %w", err)
	}
	if err := s.produce(ctx, tenantID, ActorAnonymized, value); err != nil {
		return fmt.Errorf("produce anonymization: %w", err)
	}
	return nil
}

func (s *Sink) produce(ctx context.Context, tenantID domain.TenantID, eventName string, value []byte) error {
	key := []byte("platform")
	if !tenantID.IsNil() {
		key = []byte(tenantID.String())
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   key,
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_name", Value: []byte(eventName)},
		},
	}
	return s.producer.ProduceSync(ctx, record).FirstErr()
}
