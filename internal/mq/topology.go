package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeTasks Exchange = "permitflow.tasks"
	ExchangeDLQ   Exchange = "permitflow.dlq"
)

const (
	QueueTasksAvailable Queue = "permitflow.tasks.available"
	QueueTaskOutcomes   Queue = "permitflow.tasks.outcomes"
	QueueDLQTasks       Queue = "permitflow.dlq.tasks"
)

// Ключи маршрутизации. Exchange tasks — topic, поэтому outcomes
// собираются по шаблону task.* кроме available.
const (
	RoutingKeyAvailable RoutingKey = "task.available"
	RoutingKeyCompleted RoutingKey = "task.completed"
	RoutingKeyFailed    RoutingKey = "task.failed"
	RoutingKeyDLQTasks  RoutingKey = "tasks"
)

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

var topologyBindings = []binding{
	{QueueTasksAvailable, RoutingKeyAvailable, ExchangeTasks},
	{QueueTaskOutcomes, RoutingKeyCompleted, ExchangeTasks},
	{QueueTaskOutcomes, RoutingKeyFailed, ExchangeTasks},
	{QueueDLQTasks, RoutingKeyDLQTasks, ExchangeDLQ},
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeTasks, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQTasks),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// wakeup без смысла через минуту: опрос всё равно найдёт задачу
		{QueueTasksAvailable, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQTasks),
			"x-message-ttl":             int32(60_000),
		}},
		{QueueTaskOutcomes, dlqArgs},
		{QueueDLQTasks, nil},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	for _, b := range topologyBindings {
		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo — описание топологии для логов и CLI.
func TopologyInfo() string {
	return `
  permitflow RabbitMQ topology:

    permitflow.tasks (topic)
    ├── permitflow.tasks.available [task.available]
    │       consumer: permit-worker (wakeup), TTL 60s, DLQ
    └── permitflow.tasks.outcomes [task.completed, task.failed]
            consumer: audit, DLQ

    permitflow.dlq (direct)
    └── permitflow.dlq.tasks [tasks]
            manual processing
`
}
