package api

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CorrelationHeader is the request header carrying the caller's
// correlation ID. When absent, one is generated per request.
const CorrelationHeader = "X-Correlation-Id"

const correlationContextKey = "correlationId"

// CorrelationID reads the correlation ID attached by the middleware.
func CorrelationID(c echo.Context) string {
	if id, ok := c.Get(correlationContextKey).(string); ok {
		return id
	}
	return ""
}

// CorrelationMiddleware propagates the caller's correlation ID, or mints
// one, and echoes it back on the response so callers can trace the order
// through worker logs.
func CorrelationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			corr := strings.TrimSpace(c.Request().Header.Get(CorrelationHeader))
			if corr == "" {
				corr = strings.ReplaceAll(uuid.NewString(), "-", "")
			}

			c.Set(correlationContextKey, corr)
			if c.Response().Header().Get(CorrelationHeader) == "" {
				c.Response().Header().Set(CorrelationHeader, corr)
			}
			return next(c)
		}
	}
}
