package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RestaurantHandler exposes restaurant reference data.
type RestaurantHandler struct {
	svc  BookingService
	errs *ErrorMapper
}

func NewRestaurantHandler(svc BookingService, errs *ErrorMapper) *RestaurantHandler {
	return &RestaurantHandler{svc: svc, errs: errs}
}

// Get handles GET /restaurants/:id.
func (h *RestaurantHandler) Get(c echo.Context) error {
	r, err := h.svc.GetRestaurant(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.errs.Respond(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
