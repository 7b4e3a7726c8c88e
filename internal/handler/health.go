package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// readinessTimeout bounds the MySQL and Redis pings.
const readinessTimeout = 2 * time.Second

// Health is the liveness check.  It never touches a backing store.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Readiness answers 200 only when MySQL and Redis both respond.
func Readiness(svc BookingService, errs *ErrorMapper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
		defer cancel()
		if err := svc.Ready(ctx); err != nil {
			errs.log.Warn("readiness check failed", slog.Any("error", err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"ready": false})
		}
		return c.JSON(http.StatusOK, echo.Map{"ready": true})
	}
}
