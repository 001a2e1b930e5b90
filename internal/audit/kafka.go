package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"agrigate/internal/domain"
)

// KafkaSink streams audit events to a Kafka topic for downstream consumers.
// Produces are asynchronous and failures are logged, never surfaced: the
// persisted audit trail in the store remains the source of truth.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event domain.AuditEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode audit event", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.EntityID),
		Value: body,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("audit event publish failed", "action", event.Action, "error", err)
		}
	})
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
