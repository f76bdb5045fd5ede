// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// Deps carries everything the routes need.  Redis and Gatherer may be nil;
// the cache and rate limit middleware then pass requests straight through
// and /metrics is not registered.
type Deps struct {
	Config    config.Config
	Funciones *handler.FuncionesHandler
	Catalog   *handler.CatalogHandler
	Redis     *redis.Client
	Gatherer  prometheus.Gatherer
}

// RegisterRoutes installs the request logger, the operational endpoints and
// every /v1 route.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLogger())

	e.GET("/healthz", handler.Health)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	RegisterPublic(e, d)
	RegisterCustomer(e, d)
}

// RegisterPublic registers the read-only browse endpoints.  Catalog GETs go
// through the Redis response cache; showtime reads do not, since their
// occupied seats change with every reservation.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1")
	g.GET("/funciones", d.Funciones.List)
	g.GET("/funciones/:id", d.Funciones.Get)
	g.GET("/funciones/:id/asientos", d.Funciones.Asientos)
	g.POST("/funciones/available", d.Funciones.Available)

	cached := middleware.NewRedisCache(d.Config.Cache, d.Redis)
	g.GET("/salas", d.Catalog.ListRooms, cached)
	g.GET("/salas/:id", d.Catalog.GetRoom, cached)
	g.GET("/peliculas", d.Catalog.ListMovies, cached)
	g.GET("/peliculas/:id", d.Catalog.GetMovie, cached)
}
