package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordersmq/ordersmq/producer"
)

// CreateOrderRequest is the order intake payload.
type CreateOrderRequest struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
}

// CreateOrderResponse reports how an accepted order was handled.
type CreateOrderResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId"`
}

// OrderHandler handles order intake requests.
type OrderHandler struct {
	producer *producer.Producer
	logger   *slog.Logger
}

// NewOrderHandler creates a handler over the publish path.
func NewOrderHandler(p *producer.Producer, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{producer: p, logger: logger}
}

// CreateOrder accepts an order for asynchronous processing. Invalid
// payloads are rejected with 400, everything else is accepted with 202
// even when the broker is unreachable.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid payload"})
	}

	msg, outcome, err := h.producer.PublishOrder(c.Request().Context(), req.OrderID, req.Amount, CorrelationID(c))
	if err != nil {
		h.logger.Debug("rejected order request", "orderId", req.OrderID, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid payload"})
	}

	c.Response().Header().Set("Location", fmt.Sprintf("/orders/%s", msg.OrderID))
	return c.JSON(http.StatusAccepted, CreateOrderResponse{
		Status:  string(outcome),
		OrderID: msg.OrderID,
	})
}

// Health reports process liveness for the intake side.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
