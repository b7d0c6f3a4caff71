package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether the database is reachable.
// *database.Manager satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Root answers GET / with a static banner so a browser hit confirms the API
// is up.
func Root(c echo.Context) error {
	return c.String(http.StatusOK, "API is running!")
}

// Health is the liveness probe. It never touches the database.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready returns the readiness probe: 200 once the database answers a ping,
// 503 otherwise. The ping also triggers the first connection.
func Ready(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("readiness check failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
