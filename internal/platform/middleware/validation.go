package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hulubedeje/hms/internal/platform/schema"
)

// ErrorDetail is one entry of a 422 response body.
type ErrorDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Unprocessable converts a validation failure into a 422 whose detail lists
// each offending field as ["body", path...]. List indices stay numeric.
func Unprocessable(ve *schema.ValidationError) *echo.HTTPError {
	details := make([]ErrorDetail, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		details = append(details, ErrorDetail{
			Loc:  location(fe.Field),
			Msg:  fe.Message,
			Type: string(fe.Reason),
		})
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, details)
}

// BadBody is a 422 for a request body that is not a JSON object.
func BadBody(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, []ErrorDetail{
		{Loc: []any{"body"}, Msg: msg, Type: "malformed"},
	})
}

func location(path string) []any {
	loc := []any{"body"}
	if path == "" {
		return loc
	}
	for _, seg := range strings.Split(path, ".") {
		if i, err := strconv.Atoi(seg); err == nil {
			loc = append(loc, i)
			continue
		}
		loc = append(loc, seg)
	}
	return loc
}
