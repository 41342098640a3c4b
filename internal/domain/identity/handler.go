package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hulubedeje/hms/internal/platform/docstore"
	"github.com/hulubedeje/hms/internal/platform/middleware"
	"github.com/hulubedeje/hms/internal/platform/schema"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	auth := api.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/signup", h.Signup)
}

func (h *Handler) Login(c echo.Context) error {
	payload, err := middleware.BindObject(c)
	if err != nil {
		return err
	}

	res, err := h.svc.Login(c.Request().Context(), payload)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Signup(c echo.Context) error {
	payload, err := middleware.BindObject(c)
	if err != nil {
		return err
	}

	res, err := h.svc.Signup(c.Request().Context(), payload)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func httpError(err error) error {
	if ve, ok := schema.AsValidationError(err); ok {
		return middleware.Unprocessable(ve)
	}
	if errors.Is(err, docstore.ErrStoreUnavailable) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Database not available").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Database operation failed").SetInternal(err)
}
