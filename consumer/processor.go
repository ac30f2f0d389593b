package consumer

import (
	"context"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersmq/ordersmq/contracts"
	"github.com/ordersmq/ordersmq/internal/dedup"
	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

// OrderHandler performs the domain work for one claimed order. Its failure
// modes are ordinary errors, a failure routes the delivery through the
// retry/dead-letter policy.
type OrderHandler func(ctx context.Context, order contracts.OrderMessage) error

// Republisher publishes the requeued copy of a failed delivery.
type Republisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// Processor drives one delivery from receipt to its terminal transition.
type Processor struct {
	store      dedup.Store
	publisher  Republisher
	handler    OrderHandler
	maxRetries int
	observer   Observer
	logger     *slog.Logger
}

// ProcessorOption configures the processor
type ProcessorOption func(*Processor)

// WithObserver sets the observability collaborator
func WithObserver(observer Observer) ProcessorOption {
	return func(p *Processor) {
		p.observer = observer
	}
}

// WithProcessorLogger sets the logger
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a delivery processor.
func NewProcessor(store dedup.Store, publisher Republisher, handler OrderHandler, maxRetries int, options ...ProcessorOption) *Processor {
	p := &Processor{
		store:      store,
		publisher:  publisher,
		handler:    handler,
		maxRetries: maxRetries,
		observer:   NopObserver{},
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Handle processes a single delivery. All failures are contained here: the
// delivery ends acked, requeued or dead-lettered, and nothing unwinds past
// the consume loop.
func (p *Processor) Handle(ctx context.Context, d amqp.Delivery) {
	start := time.Now()
	logger := p.logger.With("messageId", d.MessageId, "correlationId", d.CorrelationId)

	order, err := contracts.ParseOrderMessage(d.Body)
	if err != nil {
		logger.Warn("envelope rejected", "error", err)
		p.fail(ctx, d, logger, start)
		return
	}

	// Transport-level message ID is authoritative, the envelope's copy is
	// the fallback, then the order ID.
	key := d.MessageId
	if key == "" {
		key = order.DedupKey()
	}

	if !p.store.TryClaim(key) {
		if err := d.Ack(false); err != nil {
			logger.Error("failed to ack duplicate delivery", "error", err)
			return
		}
		p.observer.ObserveDelivery(ClassDuplicate, time.Since(start))
		logger.Info("duplicate delivery dropped", "key", key, "orderId", order.OrderID)
		return
	}

	if err := p.handler(ctx, order); err != nil {
		logger.Warn("order processing failed", "orderId", order.OrderID, "error", err)
		// Give the claim back so the requeued copy, which carries the same
		// message ID, is not dropped as a duplicate.
		p.store.Release(key)
		p.fail(ctx, d, logger, start)
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack processed delivery", "error", err)
		return
	}
	p.observer.ObserveDelivery(ClassProcessed, time.Since(start))
	logger.Info("order processed", "orderId", order.OrderID, "amount", order.Amount)
}

// fail applies the retry/dead-letter policy to a failed delivery.
func (p *Processor) fail(ctx context.Context, d amqp.Delivery, logger *slog.Logger, start time.Time) {
	retryCount, valid := rabbitmq.RetryCount(d.Headers)
	if !valid {
		if raw, present := d.Headers[rabbitmq.RetryHeader]; present {
			logger.Warn("malformed retry header, treating as zero", "value", raw)
		}
	}

	decision := Decide(retryCount, p.maxRetries)
	switch decision.Kind {
	case DeadLetter:
		// Reject without requeue: the queue's dead-letter binding routes
		// the message to the DLQ.
		if err := d.Reject(false); err != nil {
			logger.Error("failed to reject delivery", "error", err)
			return
		}
		p.observer.ObserveDelivery(ClassDeadLettered, time.Since(start))
		logger.Error("retries exhausted, delivery dead-lettered",
			"retryCount", retryCount, "maxRetries", p.maxRetries)

	case Requeue:
		contentType := d.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		msg := amqp.Publishing{
			ContentType:   contentType,
			DeliveryMode:  amqp.Persistent,
			MessageId:     d.MessageId,
			CorrelationId: d.CorrelationId,
			Timestamp:     d.Timestamp,
			Headers:       rabbitmq.WithRetryCount(d.Headers, decision.NextRetryCount),
			Body:          d.Body,
		}

		// Publish the copy first, ack the original second: the original
		// leaves the queue head and the copy joins the back. Per-message
		// ordering is traded away so a poison message cannot block the
		// queue.
		if err := p.publisher.Publish(ctx, rabbitmq.OrdersExchange, rabbitmq.OrdersRoutingKey, msg); err != nil {
			logger.Error("requeue publish failed, returning delivery to the broker", "error", err)
			if nackErr := d.Nack(false, true); nackErr != nil {
				logger.Error("failed to nack delivery", "error", nackErr)
			}
			return
		}
		if err := d.Ack(false); err != nil {
			logger.Error("failed to ack requeued delivery", "error", err)
			return
		}
		p.observer.ObserveDelivery(ClassRequeued, time.Since(start))
		logger.Info("delivery requeued", "retryCount", decision.NextRetryCount)
	}
}
