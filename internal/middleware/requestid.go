package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestID reuses an incoming X-Request-ID or assigns a fresh UUID, and
// echoes it back on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			c.Set(KeyRequestID, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// AccessLog writes one entry per request once the response is known.
// Errors are handed to echo's error handler first so the logged status is
// the one the client sees.
func AccessLog(log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			fields := logrus.Fields{
				"request_id": RequestIDOf(c),
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
			}
			if id, _, ok := CurrentUser(c); ok {
				fields["user_id"] = id
			}
			entry := log.WithFields(fields)
			switch {
			case c.Response().Status >= 500:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
