package realtime

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-ops/internal/connections/rabbitmq"
	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

// Consumer bridges the broker to the hub: it drains the gateway's event
// queue and dispatches each domain event to the connected clients.
type Consumer struct {
	mq  *rabbitmq.Client
	hub *Hub
	lg  *logger.Logger
}

func NewConsumer(mq *rabbitmq.Client, hub *Hub, lg *logger.Logger) *Consumer {
	return &Consumer{mq: mq, hub: hub, lg: lg}
}

func (c *Consumer) Run(ctx context.Context) error {
	queue, err := c.mq.DeclareEventQueue()
	if err != nil {
		return err
	}

	ch := c.mq.Channel()
	closeCh := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if e := <-closeCh; e != nil {
			c.lg.Error("amqp_channel_closed", e, map[string]any{"code": e.Code})
		}
	}()

	msgs, err := c.mq.Consume(queue, "realtime-gateway", 0)
	if err != nil {
		return err
	}
	c.lg.Info("event_consumer_started", map[string]any{"queue": queue})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev domain.Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.lg.Error("event_decode_failed", err, map[string]any{"message_id": d.MessageId})
				_ = d.Nack(false, false)
				continue
			}
			c.hub.Dispatch(ev)
			_ = d.Ack(false)
		}
	}
}
