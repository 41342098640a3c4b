package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as {"detail": ...}. Messages of 5xx errors
// that did not come from an *echo.HTTPError are not exposed to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var detail any = "Internal Server Error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			detail = he.Message
			if he.Internal != nil {
				logger.Error().Err(he.Internal).Str("request_id", GetRequestID(c)).Int("status", code).Msg("request failed")
			}
		} else {
			logger.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("unhandled error")
		}

		if s, ok := detail.(string); ok && s == "" {
			detail = http.StatusText(code)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, map[string]any{"detail": detail})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
