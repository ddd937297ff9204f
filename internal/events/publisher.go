package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-ops/internal/connections/rabbitmq"
	"restaurant-ops/internal/domain"
)

// Publisher pushes domain events onto the fanout exchange consumed by the
// realtime gateways.
type Publisher struct {
	mq     *rabbitmq.Client
	source string
}

func NewPublisher(mq *rabbitmq.Client, source string) *Publisher {
	return &Publisher{mq: mq, source: source}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	correlation := ""
	if ev.Order != nil {
		correlation = ev.Order.ID
	} else if ev.Message != nil {
		correlation = ev.Message.ID
	}
	return p.mq.Publish(ctx, rabbitmq.EventsExchange, "", body,
		amqp.Table{"x-source": p.source, "x-event-type": ev.Type},
		uuid.NewString(), correlation)
}
