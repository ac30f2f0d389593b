package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChannelExecutor runs a function with a broker channel. Implemented by
// ChannelPool on the producer side and by the supervisor's per-generation
// channel on the worker side.
type ChannelExecutor interface {
	Execute(ctx context.Context, fn func(*amqp.Channel) error) error
}

// Publisher publishes durable messages to the orders exchange.
type Publisher struct {
	executor       ChannelExecutor
	publishTimeout time.Duration
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithPublishTimeout bounds a single publish operation
func WithPublishTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.publishTimeout = timeout
	}
}

// NewPublisher creates a new publisher
func NewPublisher(executor ChannelExecutor, options ...PublisherOption) *Publisher {
	p := &Publisher{
		executor:       executor,
		publishTimeout: 10 * time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Publish sends a message to the given exchange under the given routing key.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
	}

	err := p.executor.Execute(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			msg,
		)
	})
	if err != nil {
		return &PublishError{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Err:        err,
			Timestamp:  time.Now(),
		}
	}
	return nil
}

// OrderPublishing builds the transport frame for an order envelope: JSON
// content type, persistent delivery mode, and the message/correlation IDs
// mirrored into transport properties for observability.
func OrderPublishing(body []byte, messageID, correlationID string) amqp.Publishing {
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     messageID,
		CorrelationId: correlationID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}
}
