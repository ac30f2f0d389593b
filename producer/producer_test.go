package producer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ordersmq/ordersmq/contracts"
	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

type mockBrokerPublisher struct {
	mock.Mock
}

func (m *mockBrokerPublisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, routingKey, msg)
	return args.Error(0)
}

func TestPublishOrder(t *testing.T) {
	t.Run("valid order is durably published and reported queued", func(t *testing.T) {
		publisher := &mockBrokerPublisher{}
		publisher.On("Publish", mock.Anything, rabbitmq.OrdersExchange, rabbitmq.OrdersRoutingKey, mock.Anything).
			Return(nil).Once()
		p := New(publisher)

		orderID := uuid.New().String()
		msg, outcome, err := p.PublishOrder(context.Background(), orderID, 10.00, "corr-1")

		require.NoError(t, err)
		assert.Equal(t, OutcomeQueued, outcome)
		assert.Equal(t, orderID, msg.OrderID)
		assert.NotEmpty(t, msg.MessageID)

		frame := publisher.Calls[0].Arguments.Get(3).(amqp.Publishing)
		assert.Equal(t, uint8(amqp.Persistent), frame.DeliveryMode)
		assert.Equal(t, "application/json", frame.ContentType)
		assert.Equal(t, msg.MessageID, frame.MessageId)
		assert.Equal(t, "corr-1", frame.CorrelationId)

		parsed, err := contracts.ParseOrderMessage(frame.Body)
		require.NoError(t, err)
		assert.Equal(t, msg.MessageID, parsed.MessageID)
		publisher.AssertExpectations(t)
	})

	t.Run("validation fails fast with no broker interaction", func(t *testing.T) {
		publisher := &mockBrokerPublisher{}
		p := New(publisher)

		_, _, err := p.PublishOrder(context.Background(), "", 10.00, "corr-1")
		assert.ErrorIs(t, err, contracts.ErrMissingOrderID)

		_, _, err = p.PublishOrder(context.Background(), uuid.New().String(), -1, "corr-1")
		assert.ErrorIs(t, err, contracts.ErrInvalidAmount)

		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("broker failure degrades to simulated, never errors", func(t *testing.T) {
		publisher := &mockBrokerPublisher{}
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("dial tcp: connection refused")).Once()
		p := New(publisher)

		msg, outcome, err := p.PublishOrder(context.Background(), uuid.New().String(), 5.00, "corr-1")

		require.NoError(t, err)
		assert.Equal(t, OutcomeSimulated, outcome)
		assert.NotEmpty(t, msg.MessageID)
	})

	t.Run("each publish attempt carries a fresh message ID", func(t *testing.T) {
		publisher := &mockBrokerPublisher{}
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		p := New(publisher)

		orderID := uuid.New().String()
		first, _, err := p.PublishOrder(context.Background(), orderID, 1, "")
		require.NoError(t, err)
		second, _, err := p.PublishOrder(context.Background(), orderID, 1, "")
		require.NoError(t, err)

		assert.NotEqual(t, first.MessageID, second.MessageID)
	})
}
