// Package producer implements the publish path of the orders pipeline:
// envelope construction, durable publishing, and the degraded
// simulated-accept mode used when the broker is unreachable.
package producer

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersmq/ordersmq/contracts"
	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

// Outcome reports how an accepted order was handled.
type Outcome string

const (
	// OutcomeQueued means the order was durably published to the broker.
	OutcomeQueued Outcome = "queued"
	// OutcomeSimulated means the broker was unreachable and the order was
	// accepted without durable queuing. Callers observing this outcome
	// know the order is not on the queue, producer availability is
	// deliberately prioritized over publish guarantees.
	OutcomeSimulated Outcome = "simulated"
)

// BrokerPublisher publishes one message to an exchange.
type BrokerPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// Producer builds order envelopes and publishes them.
type Producer struct {
	publisher BrokerPublisher
	logger    *slog.Logger
}

// ProducerOption configures the producer
type ProducerOption func(*Producer)

// WithProducerLogger sets the logger
func WithProducerLogger(logger *slog.Logger) ProducerOption {
	return func(p *Producer) {
		p.logger = logger
	}
}

// New creates a producer over a broker publisher.
func New(publisher BrokerPublisher, options ...ProducerOption) *Producer {
	p := &Producer{
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// PublishOrder validates the request, builds an envelope with a fresh
// message ID, and publishes it durably. Validation failures return before
// any broker interaction. Broker failures never surface as errors: the
// order is accepted with OutcomeSimulated instead.
func (p *Producer) PublishOrder(ctx context.Context, orderID string, amount float64, correlationID string) (contracts.OrderMessage, Outcome, error) {
	msg := contracts.NewOrderMessage(orderID, amount, correlationID)
	if err := msg.Validate(); err != nil {
		return contracts.OrderMessage{}, "", err
	}

	body, err := msg.Marshal()
	if err != nil {
		return contracts.OrderMessage{}, "", fmt.Errorf("producer: encode envelope: %w", err)
	}

	frame := rabbitmq.OrderPublishing(body, msg.MessageID, msg.CorrelationID)
	if err := p.publisher.Publish(ctx, rabbitmq.OrdersExchange, rabbitmq.OrdersRoutingKey, frame); err != nil {
		p.logger.Warn("broker unreachable, accepting order in degraded mode",
			"orderId", msg.OrderID,
			"messageId", msg.MessageID,
			"correlationId", msg.CorrelationID,
			"error", err)
		return msg, OutcomeSimulated, nil
	}

	p.logger.Info("order queued",
		"orderId", msg.OrderID,
		"messageId", msg.MessageID,
		"correlationId", msg.CorrelationID)
	return msg, OutcomeQueued, nil
}
