package rabbitmq

// Exchange и ключи маршрутизации событий сервиса.
const (
	EventsExchange = "playback"

	RoutingHistoryPlayed    = "history.played"
	RoutingPaymentCompleted = "payment.completed"
)

// QueueConfig описывает очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEventQueues возвращает очереди, которые объявляются при старте.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "history.played", RoutingKey: RoutingHistoryPlayed},
		{QueueName: "payment.completed", RoutingKey: RoutingPaymentCompleted},
	}
}
