package consumer

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

// AMQPConnector builds broker-backed sessions for the supervisor: it dials,
// re-declares the orders topology, applies the prefetch bound and starts a
// manually-acknowledged consume on the work queue.
type AMQPConnector struct {
	url      string
	prefetch int
	logger   *slog.Logger
}

// NewAMQPConnector creates a connector for the orders work queue.
func NewAMQPConnector(url string, prefetch int, logger *slog.Logger) *AMQPConnector {
	return &AMQPConnector{
		url:      url,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Connect implements Connector.
func (c *AMQPConnector) Connect(ctx context.Context) (Session, error) {
	conn, err := rabbitmq.Dial(ctx, c.url, rabbitmq.WithDialLogger(c.logger))
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Topology declaration is idempotent, re-running it on every
	// generation guarantees the dead-letter path exists before the first
	// delivery arrives.
	if err := rabbitmq.DeclareTopology(ch, rabbitmq.OrdersTopology()); err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		conn.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(
		rabbitmq.OrdersQueue,
		"",    // consumer tag, broker-generated per generation
		false, // manual acknowledgment only
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &amqpSession{conn: conn, ch: ch, deliveries: deliveries}, nil
}

// amqpSession holds one generation's connection and channel. The channel is
// single-owner: only this generation's consume loop acks, rejects or
// publishes on it.
type amqpSession struct {
	conn       *rabbitmq.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

func (s *amqpSession) Deliveries() <-chan amqp.Delivery {
	return s.deliveries
}

func (s *amqpSession) NotifyClose() <-chan *amqp.Error {
	return s.conn.NotifyClose()
}

func (s *amqpSession) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	return s.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (s *amqpSession) Close() error {
	if !s.ch.IsClosed() {
		s.ch.Close()
	}
	return s.conn.Close()
}
