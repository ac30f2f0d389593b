package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingOrderID indicates the envelope carries no order identifier
	ErrMissingOrderID = errors.New("contracts: orderId is required")
	// ErrInvalidOrderID indicates the order identifier is not a valid UUID
	ErrInvalidOrderID = errors.New("contracts: orderId is not a valid identifier")
	// ErrInvalidAmount indicates the order amount is zero or negative
	ErrInvalidAmount = errors.New("contracts: amount must be greater than zero")
)

// OrderMessage is the envelope published for every accepted order.
type OrderMessage struct {
	MessageID     string    `json:"messageId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	OrderID       string    `json:"orderId"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewOrderMessage builds an envelope with a freshly generated message ID.
// The message ID is generated once per publish attempt and never changes
// afterwards, it is the primary deduplication key on the consumer side.
func NewOrderMessage(orderID string, amount float64, correlationID string) OrderMessage {
	return OrderMessage{
		MessageID:     uuid.New().String(),
		CorrelationID: correlationID,
		OrderID:       orderID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate checks the producer-side preconditions. It is called before any
// broker interaction so that invalid requests fail fast with no side effects.
func (m OrderMessage) Validate() error {
	if m.OrderID == "" {
		return ErrMissingOrderID
	}
	if _, err := uuid.Parse(m.OrderID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOrderID, m.OrderID)
	}
	if m.Amount <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidAmount, m.Amount)
	}
	return nil
}

// DedupKey returns the identity used by the idempotency guard: the message ID
// when present, otherwise the order ID.
func (m OrderMessage) DedupKey() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return m.OrderID
}

// Marshal serializes the envelope for transport.
func (m OrderMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ParseOrderMessage decodes and validates an envelope received from the
// broker. A decode or validation failure is a processing failure for the
// consumer, it is never fatal to the loop.
func ParseOrderMessage(body []byte) (OrderMessage, error) {
	var m OrderMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return OrderMessage{}, fmt.Errorf("contracts: malformed envelope: %w", err)
	}
	if err := m.Validate(); err != nil {
		return OrderMessage{}, err
	}
	return m, nil
}
