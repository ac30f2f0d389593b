package producer

import (
	"context"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

// AMQPPublisher is the broker-backed BrokerPublisher of the API process. It
// connects lazily, declares the orders topology once per connection so
// publishes before the worker's first start are not lost, and drops the
// connection on publish failure so the next request re-dials.
type AMQPPublisher struct {
	url    string
	logger *slog.Logger

	mu        sync.Mutex
	conn      *rabbitmq.Connection
	pool      *rabbitmq.ChannelPool
	publisher *rabbitmq.Publisher
}

// NewAMQPPublisher creates a lazily connecting publisher.
func NewAMQPPublisher(url string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:    url,
		logger: logger,
	}
}

// Publish implements BrokerPublisher.
func (a *AMQPPublisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	publisher, err := a.ensure(ctx)
	if err != nil {
		return err
	}

	if err := publisher.Publish(ctx, exchange, routingKey, msg); err != nil {
		a.drop()
		return err
	}
	return nil
}

// Close releases the connection if one is open.
func (a *AMQPPublisher) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *AMQPPublisher) ensure(ctx context.Context) (*rabbitmq.Publisher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil && !a.conn.IsClosed() {
		return a.publisher, nil
	}
	a.closeLocked()

	conn, err := rabbitmq.Dial(ctx, a.url, rabbitmq.WithDialLogger(a.logger))
	if err != nil {
		return nil, err
	}

	pool, err := rabbitmq.NewChannelPool(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = pool.Execute(ctx, func(ch *amqp.Channel) error {
		return rabbitmq.DeclareTopology(ch, rabbitmq.OrdersTopology())
	})
	if err != nil {
		pool.Close()
		conn.Close()
		return nil, err
	}

	a.conn = conn
	a.pool = pool
	a.publisher = rabbitmq.NewPublisher(pool)
	return a.publisher, nil
}

func (a *AMQPPublisher) drop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

func (a *AMQPPublisher) closeLocked() error {
	var err error
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.conn != nil {
		err = a.conn.Close()
		a.conn = nil
	}
	a.publisher = nil
	return err
}
