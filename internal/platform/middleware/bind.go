package middleware

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/labstack/echo/v4"
)

// BindObject decodes the request body as a JSON object. Numbers are kept as
// json.Number so integers survive unchanged. Errors are ready to return from
// a handler.
func BindObject(c echo.Context) (map[string]any, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			return nil, he
		case errors.Is(err, io.EOF):
			return nil, BadBody("request body is required")
		default:
			return nil, BadBody("invalid JSON: " + err.Error())
		}
	}

	// Anything but whitespace after the first value makes the body invalid.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, BadBody("unexpected data after the JSON object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, BadBody("expected a JSON object")
	}
	return obj, nil
}
