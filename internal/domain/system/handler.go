// Package system serves the service banner, the store diagnostic and the
// liveness probe.
package system

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hulubedeje/hms/internal/platform/docstore"
)

// MaxCollections bounds the collection names listed by GET /test.
const MaxCollections = 20

// StatusSource reports store status without failing.
type StatusSource interface {
	Status(ctx context.Context, maxCollections int) docstore.Status
}

type Handler struct {
	name  string
	store StatusSource
}

func NewHandler(name string, store StatusSource) *Handler {
	return &Handler{name: name, store: store}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/test", h.Test)
	e.GET("/health", h.Health)
}

func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"name": h.name, "status": "ok"})
}

// Test always answers 200, reporting whatever could be learned about the
// store.
func (h *Handler) Test(c echo.Context) error {
	st := h.store.Status(c.Request().Context(), MaxCollections)
	return c.JSON(http.StatusOK, Diagnose(st))
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
