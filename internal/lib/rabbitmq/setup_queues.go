package rabbitmq

// Routing keys for notification events.
const (
	KeyDowngraded   = "downgraded"
	KeyExpiring     = "expiring"
	KeyFinalWarning = "final-warning"
	KeyLowStock     = "lowstock"
	KeyOverdue      = "overdue"
)

// QueueConfig binds one queue to a routing key on the notifications exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues lists the queues the sender worker consumes.
// The single queue receives every event type; the routing key wildcard
// keeps delivery order per queue.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.events", RoutingKey: "#"},
	}
}
