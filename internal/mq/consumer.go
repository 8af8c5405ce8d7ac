package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrReject — сообщение отбрасывается без повторной доставки (в DLQ).
var ErrReject = errors.New("mq: reject message")

var errDeliveriesClosed = errors.New("mq: deliveries channel closed")

// Handler обрабатывает сообщение очереди. Любая ошибка, кроме ErrReject,
// возвращает сообщение в очередь один раз.
type Handler func(ctx context.Context, msg *Message) error

// Consumer читает одну очередь и подписывается заново после reconnect.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	mu   sync.Mutex
	stop context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   string
	Handler Handler

	// Prefetch — неподтверждённых сообщений на канал (0 — 1).
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: cfg.Prefetch,
	}
}

// Start читает очередь до отмены ctx или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.stop = cancel
	c.mu.Unlock()

	for {
		deliveries, err := c.subscribe()
		if err == nil {
			c.logger.Info("consumer started")
			err = c.serve(ctx, deliveries)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer interrupted, waiting for reconnect", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// Stop прекращает чтение очереди.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	// ack вручную после обработчика
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

func (c *Consumer) serve(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.dispatch(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}
	c.logger.Error("message handling failed", "redelivered", d.Redelivered, "error", err)
	_ = d.Nack(false, requeue(err, d.Redelivered))
}

// dispatch декодирует конверт и вызывает обработчик.
func (c *Consumer) dispatch(ctx context.Context, body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrReject, err)
	}
	c.logger.Debug("message received", "message_id", msg.ID, "type", msg.Type)
	return c.handler(ctx, &msg)
}

// requeue: упавшее повторно сообщение уходит в DLQ.
func requeue(err error, redelivered bool) bool {
	return !errors.Is(err, ErrReject) && !redelivered
}

// ParsePayload декодирует payload конверта в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var out T
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return out, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("unmarshal payload: %w", err)
	}
	return out, nil
}
