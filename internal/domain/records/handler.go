package records

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hulubedeje/hms/internal/platform/docstore"
	"github.com/hulubedeje/hms/internal/platform/events"
	"github.com/hulubedeje/hms/internal/platform/middleware"
	"github.com/hulubedeje/hms/internal/platform/schema"
	"github.com/hulubedeje/hms/pkg/pagination"
)

type Handler struct {
	svc    *Service
	routes []Route
}

func NewHandler(svc *Service, routes []Route) *Handler {
	return &Handler{svc: svc, routes: routes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	for _, rt := range h.routes {
		api.POST(rt.Path, h.Create(rt))
		api.GET(rt.Path, h.List(rt))
	}
}

// Create handles POST on a collection and answers {"id": ...}.
func (h *Handler) Create(rt Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		payload, err := middleware.BindObject(c)
		if err != nil {
			return err
		}

		ctx := events.WithRequestID(c.Request().Context(), middleware.GetRequestID(c))
		id, err := h.svc.Create(ctx, rt.Kind, payload)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, map[string]string{"id": id})
	}
}

// List handles GET on a collection. Only the route's declared filters are
// honored; other query parameters are ignored.
func (h *Handler) List(rt Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := docstore.Filter{}
		for _, name := range rt.Filters {
			if v := c.QueryParam(name); v != "" {
				filter[name] = v
			}
		}

		docs, err := h.svc.List(c.Request().Context(), rt.Kind, filter, pagination.FromContext(c, rt.Limit))
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, docs)
	}
}

func storeError(err error) error {
	if ve, ok := schema.AsValidationError(err); ok {
		return middleware.Unprocessable(ve)
	}
	if errors.Is(err, docstore.ErrStoreUnavailable) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Database not available").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Database operation failed").SetInternal(err)
}
