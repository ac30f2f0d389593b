package reliability

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersmq/ordersmq/contracts"
	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

// FailedOrder is an inspection view of one dead-lettered delivery.
type FailedOrder struct {
	MessageID     string
	CorrelationID string
	OrderID       string
	Amount        float64
	RetryCount    int
	Parseable     bool
}

// DLQChannel is the subset of channel operations the inspector needs.
// *amqp.Channel satisfies it.
type DLQChannel interface {
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
}

// DLQInspector reads and replays dead-lettered orders. List leaves the
// queue untouched, Replay moves messages back onto the orders exchange
// with a reset retry budget.
type DLQInspector struct {
	ch     DLQChannel
	logger *slog.Logger
}

// NewDLQInspector creates an inspector over an open channel.
func NewDLQInspector(ch DLQChannel, logger *slog.Logger) *DLQInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DLQInspector{ch: ch, logger: logger}
}

// List fetches up to limit dead-lettered orders without consuming them:
// every fetched message is returned to the queue with a requeueing nack.
func (i *DLQInspector) List(ctx context.Context, limit int) ([]FailedOrder, error) {
	var orders []FailedOrder
	var lastTag uint64

	for len(orders) < limit {
		if ctx.Err() != nil {
			break
		}
		d, ok, err := i.ch.Get(rabbitmq.DeadLetterQueue, false)
		if err != nil {
			return orders, fmt.Errorf("dlq get: %w", err)
		}
		if !ok {
			break
		}
		lastTag = d.DeliveryTag
		orders = append(orders, describe(d))
	}

	if lastTag > 0 {
		// Multiple-nack returns the whole fetched batch in one call.
		if err := i.ch.Nack(lastTag, true, true); err != nil {
			return orders, fmt.Errorf("dlq requeue: %w", err)
		}
	}
	return orders, nil
}

// Replay moves up to limit dead-lettered orders back onto the orders
// exchange. The retry header is stripped so the replayed message gets the
// full retry budget again. Each message is acked off the DLQ only after
// its republish succeeded.
func (i *DLQInspector) Replay(ctx context.Context, limit int) (int, error) {
	replayed := 0

	for replayed < limit {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		d, ok, err := i.ch.Get(rabbitmq.DeadLetterQueue, false)
		if err != nil {
			return replayed, fmt.Errorf("dlq get: %w", err)
		}
		if !ok {
			break
		}

		headers := amqp.Table{}
		for k, v := range d.Headers {
			if k == rabbitmq.RetryHeader || k == "x-death" {
				continue
			}
			headers[k] = v
		}

		msg := amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     d.MessageId,
			CorrelationId: d.CorrelationId,
			Headers:       headers,
			Body:          d.Body,
		}
		if err := i.ch.PublishWithContext(ctx, rabbitmq.OrdersExchange, rabbitmq.OrdersRoutingKey, false, false, msg); err != nil {
			if nackErr := i.ch.Nack(d.DeliveryTag, false, true); nackErr != nil {
				i.logger.Warn("requeue after failed replay failed", "messageId", d.MessageId, "error", nackErr)
			}
			return replayed, fmt.Errorf("replay publish: %w", err)
		}
		if err := i.ch.Ack(d.DeliveryTag, false); err != nil {
			return replayed, fmt.Errorf("dlq ack: %w", err)
		}

		replayed++
		i.logger.Info("dead-lettered order replayed", "messageId", d.MessageId, "orderId", describe(d).OrderID)
	}
	return replayed, nil
}

func describe(d amqp.Delivery) FailedOrder {
	order := FailedOrder{MessageID: d.MessageId, CorrelationID: d.CorrelationId}
	if count, ok := rabbitmq.RetryCount(d.Headers); ok {
		order.RetryCount = count
	}
	msg, err := contracts.ParseOrderMessage(d.Body)
	if err != nil {
		return order
	}
	order.OrderID = msg.OrderID
	order.Amount = msg.Amount
	order.Parseable = true
	if order.MessageID == "" {
		order.MessageID = msg.MessageID
	}
	return order
}
