package contracts

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderMessage(t *testing.T) {
	t.Run("generates a unique message ID per publish attempt", func(t *testing.T) {
		orderID := uuid.New().String()

		first := NewOrderMessage(orderID, 10.0, "corr-1")
		second := NewOrderMessage(orderID, 10.0, "corr-1")

		assert.NotEmpty(t, first.MessageID)
		assert.NotEqual(t, first.MessageID, second.MessageID)
		assert.Equal(t, orderID, first.OrderID)
		assert.Equal(t, "corr-1", first.CorrelationID)
		assert.False(t, first.CreatedAt.IsZero())
	})
}

func TestOrderMessageValidate(t *testing.T) {
	valid := uuid.New().String()

	tests := []struct {
		name    string
		orderID string
		amount  float64
		wantErr error
	}{
		{"valid order", valid, 10.50, nil},
		{"missing order id", "", 10.50, ErrMissingOrderID},
		{"malformed order id", "not-a-uuid", 10.50, ErrInvalidOrderID},
		{"zero amount", valid, 0, ErrInvalidAmount},
		{"negative amount", valid, -5, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := OrderMessage{OrderID: tt.orderID, Amount: tt.amount}
			err := m.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDedupKey(t *testing.T) {
	t.Run("prefers message ID", func(t *testing.T) {
		m := OrderMessage{MessageID: "msg-1", OrderID: "order-1"}
		assert.Equal(t, "msg-1", m.DedupKey())
	})

	t.Run("falls back to order ID when message ID absent", func(t *testing.T) {
		m := OrderMessage{OrderID: "order-1"}
		assert.Equal(t, "order-1", m.DedupKey())
	})
}

func TestParseOrderMessage(t *testing.T) {
	t.Run("decodes camelCase wire format", func(t *testing.T) {
		orderID := uuid.New().String()
		body := []byte(`{"messageId":"m-1","correlationId":"c-1","orderId":"` + orderID + `","amount":42.5,"createdAt":"2024-01-02T03:04:05Z"}`)

		m, err := ParseOrderMessage(body)
		require.NoError(t, err)
		assert.Equal(t, "m-1", m.MessageID)
		assert.Equal(t, "c-1", m.CorrelationID)
		assert.Equal(t, orderID, m.OrderID)
		assert.Equal(t, 42.5, m.Amount)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := ParseOrderMessage([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("rejects structurally valid but invalid envelope", func(t *testing.T) {
		_, err := ParseOrderMessage([]byte(`{"orderId":"","amount":10}`))
		assert.ErrorIs(t, err, ErrMissingOrderID)
	})

	t.Run("marshal emits camelCase keys", func(t *testing.T) {
		m := NewOrderMessage(uuid.New().String(), 1.25, "c-9")
		raw, err := m.Marshal()
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Contains(t, decoded, "messageId")
		assert.Contains(t, decoded, "orderId")
		assert.Contains(t, decoded, "amount")
		assert.Contains(t, decoded, "createdAt")
	})
}
