package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on each request context. Store calls made
// with that context are abandoned once it passes and the client gets 504.
// The handler runs on the calling goroutine, so a response it already
// committed is kept and nothing writes to the context after it returns.
// A zero timeout disables the deadline; /metrics never gets one.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || c.Request().URL.Path == "/metrics" {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if c.Response().Committed || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			return &echo.HTTPError{
				Code:     http.StatusGatewayTimeout,
				Message:  "Request processing exceeded the allowed time limit",
				Internal: err,
			}
		}
	}
}
