package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterCustomer registers the seat mutation endpoints.  With a JWT
// secret configured they require a token carrying one of the configured
// roles; the rate limiter runs after authentication so it can key on the
// user.
func RegisterCustomer(e *echo.Echo, d Deps) {
	var mws []echo.MiddlewareFunc
	if secret := d.Config.JWT.Secret; secret != "" {
		mws = append(mws, middleware.JWTAuth(secret), middleware.RequireRole(d.Config.JWT.Roles...))
	} else {
		logger.Get().Warn("JWT_SECRET not set: reserve and cancel endpoints are unauthenticated")
	}
	mws = append(mws, middleware.NewTokenBucket(d.Config.RateLimit, d.Redis))

	// Route-level middleware: a group on /v1/funciones would also wrap the
	// public showtime reads registered under the same prefix.
	e.POST("/v1/funciones/reservar", d.Funciones.Reserve, mws...)
	e.POST("/v1/funciones/cancelar-reserva", d.Funciones.Cancel, mws...)
}
