package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Collection list caps.
const (
	DefaultLimit = 100
	LargeLimit   = 200
)

// FromContext returns the number of records a list request may return. A
// positive ?limit lowers the cap; anything else leaves it as is.
func FromContext(c echo.Context, cap int) int {
	return Clamp(c.QueryParam("limit"), cap)
}

// Clamp parses raw and bounds it by cap.
func Clamp(raw string, cap int) int {
	if cap <= 0 {
		cap = DefaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > cap {
		return cap
	}
	return n
}
