package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestLogger assigns a request id (reusing an inbound X-Request-ID),
// stores it on the request context and writes one access log line per
// request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(headerRequestID)
			if id == "" {
				id = logger.NewRequestID()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.WithContext(c.Request().Context()).Info("http request",
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Path(),
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			)
			return nil
		}
	}
}
