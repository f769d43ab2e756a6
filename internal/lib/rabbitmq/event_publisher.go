package rabbitmq

import (
	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// EventPublisher routes notification events to the notifications exchange.
// It satisfies the per-service publisher interfaces.
type EventPublisher struct {
	ch *amqp.Channel
}

func NewEventPublisher(ch *amqp.Channel) *EventPublisher {
	return &EventPublisher{ch: ch}
}

// Publish stamps the event with a unique ID and sends it to the
// notifications exchange. Delivery is at-least-once, so the ID is what lets
// the consumer recognize a redelivered event.
func (p *EventPublisher) Publish(routingKey string, event models.NotificationEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	return PublishMessage(p.ch, NotificationsExchange, routingKey, event)
}

// NopPublisher discards events. Used when the broker is not configured,
// typically with the in-memory storage during local development.
type NopPublisher struct{}

func (NopPublisher) Publish(string, models.NotificationEvent) error { return nil }
