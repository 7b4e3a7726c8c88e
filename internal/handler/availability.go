package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/frontdesk/internal/booking"
)

// AvailabilityHandler serves slot checks and hold release.
type AvailabilityHandler struct {
	svc  BookingService
	errs *ErrorMapper
}

func NewAvailabilityHandler(svc BookingService, errs *ErrorMapper) *AvailabilityHandler {
	if svc == nil || errs == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{svc: svc, errs: errs}
}

// Check handles POST /availability/check.  An open slot is held for the
// caller and the hold id returned; a conflict answers 409 with up to four
// alternate start times.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	var body slotBody
	if err := bind(c, &body); err != nil {
		return h.errs.Respond(c, err)
	}
	start, err := booking.ParseStart(body.StartTS)
	if err != nil {
		return h.errs.Respond(c, err)
	}
	grant, err := h.svc.CheckAvailability(c.Request().Context(), booking.AvailabilityRequest{
		RestaurantID:    body.RestaurantID,
		PartySize:       body.PartySize,
		Start:           start,
		DurationMinutes: body.DurationMinutes,
	})
	if err != nil {
		return h.errs.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hold_id":            grant.HoldID,
		"restaurant_id":      grant.RestaurantID,
		"start_ts":           grant.Start.UTC().Format(time.RFC3339),
		"end_ts":             grant.End.UTC().Format(time.RFC3339),
		"duration_minutes":   grant.DurationMinutes,
		"expires_in_seconds": grant.ExpiresInSeconds,
	})
}

// Release handles DELETE /availability/hold.  Releasing a hold that has
// expired or belongs to someone else is not an error.
func (h *AvailabilityHandler) Release(c echo.Context) error {
	var body struct {
		slotBody
		HoldID string `json:"hold_id"`
	}
	if err := bind(c, &body); err != nil {
		return h.errs.Respond(c, err)
	}
	start, err := booking.ParseStart(body.StartTS)
	if err != nil {
		return h.errs.Respond(c, err)
	}
	err = h.svc.ReleaseHold(c.Request().Context(), booking.ReleaseRequest{
		RestaurantID:    body.RestaurantID,
		PartySize:       body.PartySize,
		Start:           start,
		DurationMinutes: body.DurationMinutes,
		HoldID:          body.HoldID,
	})
	if err != nil {
		return h.errs.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
