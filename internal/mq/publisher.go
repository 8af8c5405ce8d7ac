package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения.
type MessageType string

const (
	MessageTypeTaskAvailable MessageType = "task.available"
	MessageTypeTaskCompleted MessageType = "task.completed"
	MessageTypeTaskFailed    MessageType = "task.failed"
)

// Message — конверт сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// TaskAvailablePayload — в engine есть задачи по топику.
type TaskAvailablePayload struct {
	Topic string `json:"topic"`
}

// TaskOutcomePayload — итог обработки одной задачи.
type TaskOutcomePayload struct {
	TaskID            string         `json:"task_id"`
	Topic             string         `json:"topic"`
	BusinessKey       string         `json:"business_key,omitempty"`
	ProcessInstanceID string         `json:"process_instance_id,omitempty"`
	ErrandNumber      string         `json:"errand_number,omitempty"`
	Status            string         `json:"status"`
	Outputs           map[string]any `json:"outputs,omitempty"`
	Error             string         `json:"error,omitempty"`
	DurationMs        int64          `json:"duration_ms"`
}

// Publisher публикует сообщения.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// NewMessage оборачивает payload в конверт.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publish публикует сообщение как persistent JSON.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishTaskAvailable будит воркеры, слушающие топик.
func (p *Publisher) PublishTaskAvailable(ctx context.Context, topic string) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeyAvailable,
		NewMessage(MessageTypeTaskAvailable, TaskAvailablePayload{Topic: topic}))
}

// PublishTaskCompleted публикует успешный итог задачи.
func (p *Publisher) PublishTaskCompleted(ctx context.Context, payload TaskOutcomePayload) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeyCompleted,
		NewMessage(MessageTypeTaskCompleted, payload))
}

// PublishTaskFailed публикует инцидент по задаче.
func (p *Publisher) PublishTaskFailed(ctx context.Context, payload TaskOutcomePayload) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeyFailed,
		NewMessage(MessageTypeTaskFailed, payload))
}
