package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/frontdesk/internal/handler"
)

// RegisterRoutes registers the health checks at the root so load balancers do not
// depend on API_PREFIX.  They sit outside the rate limiter.
func RegisterRoutes(e *echo.Echo, svc handler.BookingService, errs *handler.ErrorMapper) {
	e.GET("/healthz", handler.Health)
	e.GET("/readiness", handler.Readiness(svc, errs))
}

// RegisterBooking registers the availability and reservation endpoints on
// the API group.  These are never cached.
func RegisterBooking(g *echo.Group, a *handler.AvailabilityHandler, r *handler.ReservationHandler) {
	g.POST("/availability/check", a.Check)
	g.DELETE("/availability/hold", a.Release)

	g.POST("/reservations/commit", r.Commit)
	g.GET("/reservations/:id", r.Get)
	g.POST("/reservations/:id/cancel", r.Cancel)
}

// RegisterRestaurants registers reference-data reads behind the response
// cache.
func RegisterRestaurants(g *echo.Group, h *handler.RestaurantHandler, cache echo.MiddlewareFunc) {
	g.GET("/restaurants/:id", h.Get, cache)
}
