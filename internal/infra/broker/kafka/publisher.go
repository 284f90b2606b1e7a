package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/events"
)

const eventsTopic = "platform.events"

// EventPublisher serializes domain events as JSON envelopes keyed by
// aggregate id, so events of one booking land in one partition in order.
type EventPublisher struct {
	producer *Producer
	prefix   string
}

func NewEventPublisher(producer *Producer, topicPrefix string) *EventPublisher {
	return &EventPublisher{producer: producer, prefix: topicPrefix}
}

type envelope struct {
	Name        string    `json:"name"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

func (p *EventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	body, err := json.Marshal(envelope{
		Name:        event.EventName(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt().UTC(),
		Payload:     event,
	})
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, p.prefix+eventsTopic, event.AggregateID(), body, map[string]string{
		"event": event.EventName(),
	})
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, events.DomainEvent) error { return nil }

var _ policies.EventPublisher = (*EventPublisher)(nil)
var _ policies.EventPublisher = NopPublisher{}
