package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/film-catalog/internal/handler"
	"github.com/iliyamo/film-catalog/internal/middleware"
)

// New returns an Echo instance with the request validator and the global
// middleware chain installed. An empty origins list allows any origin.
func New(corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	return e
}

// RegisterRoutes registers the banner and the probes. They sit outside the
// /api group so the cache and the limiter never see them.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterCatalog registers the film and actor endpoints under /api. The
// given middleware (rate limiting first, then the response cache) wraps
// every route of the group.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api", mw...)

	g.GET("", h.Overview)
	g.GET("/films", h.ListFilms)
	g.POST("/add/film", h.AddFilm)
	g.DELETE("/film", h.DeleteFilm)

	g.GET("/actors", h.ListActors)
	g.GET("/actor/:id", h.GetActor)
	g.POST("/add/actor", h.AddActor)
}
