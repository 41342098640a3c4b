package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultBodyLimit int64 = 1 << 20

// BodyLimit caps request bodies at limit bytes. Oversized requests fail with
// 413 before the handler runs when Content-Length says so, or on the read
// that crosses the cap otherwise.
//
// limit accepts a byte count with an optional K, M or G suffix ("512K",
// "1M", "2MB").
func BodyLimit(limit string) echo.MiddlewareFunc {
	capBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > capBytes {
				return tooLarge(capBytes)
			}
			req.Body = &cappedBody{ReadCloser: req.Body, left: capBytes, capBytes: capBytes}
			return next(c)
		}
	}
}

// cappedBody fails every read once more than capBytes have been consumed.
type cappedBody struct {
	io.ReadCloser
	left     int64
	capBytes int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left < 0 {
		return 0, tooLarge(b.capBytes)
	}
	// One extra byte tells an exact fit apart from an overflow.
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		return 0, tooLarge(b.capBytes)
	}
	return n, err
}

func tooLarge(capBytes int64) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body exceeds maximum allowed size of %d bytes", capBytes))
}

// parseLimit falls back to 1 MB for empty, malformed or non-positive input.
func parseLimit(s string) int64 {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")

	unit := int64(1)
	if s != "" {
		switch s[len(s)-1] {
		case 'K':
			unit = 1 << 10
		case 'M':
			unit = 1 << 20
		case 'G':
			unit = 1 << 30
		}
		if unit > 1 {
			s = s[:len(s)-1]
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n * unit
}
