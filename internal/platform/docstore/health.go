package docstore

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Status is a point-in-time view of the gateway used by diagnostics.
type Status struct {
	Configured  bool     `json:"configured"`
	URLSet      bool     `json:"url_set"`
	Database    string   `json:"database"`
	Backend     string   `json:"backend"`
	Connected   bool     `json:"connected"`
	Collections []string `json:"collections"`
	Err         error    `json:"-"`
}

// Status tries to connect and list up to maxCollections collections. It never
// returns an error; failures are recorded in Status.Err.
func (g *Gateway) Status(ctx context.Context, maxCollections int) Status {
	st := Status{
		Configured:  g.cfg.configured(),
		URLSet:      g.cfg.URL != "",
		Database:    g.cfg.Database,
		Backend:     Scheme(g.cfg.URL),
		Collections: []string{},
	}
	if !st.Configured {
		st.Err = &ConnectionError{Err: ErrNotConfigured}
		return st
	}

	names, err := g.Collections(ctx, maxCollections)
	if err != nil {
		st.Err = err
		st.Connected = g.Connected()
		return st
	}
	st.Connected = true
	st.Collections = names
	return st
}

// HealthHandler pings the store and answers 200 or 503.
func HealthHandler(g *Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := g.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"backend": Scheme(g.cfg.URL),
		})
	}
}
