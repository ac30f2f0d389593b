package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ordersmq/ordersmq/producer"
)

// NewRouter wires the intake routes onto a configured echo instance.
func NewRouter(p *producer.Producer, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(CorrelationMiddleware())

	handler := NewOrderHandler(p, logger)
	e.POST("/orders", handler.CreateOrder)
	e.GET("/health", Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
