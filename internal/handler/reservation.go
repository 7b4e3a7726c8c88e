package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/frontdesk/internal/booking"
)

// ReservationHandler serves the durable booking endpoints.
type ReservationHandler struct {
	svc  BookingService
	errs *ErrorMapper
}

func NewReservationHandler(svc BookingService, errs *ErrorMapper) *ReservationHandler {
	if svc == nil || errs == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, errs: errs}
}

type commitBody struct {
	slotBody
	Name         string  `json:"name"`
	Source       string  `json:"source"`
	ContactPhone *string `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Notes        *string `json:"notes"`
	HoldID       string  `json:"hold_id"`
}

// Commit handles POST /reservations/commit and answers 201 {id}.
func (h *ReservationHandler) Commit(c echo.Context) error {
	var body commitBody
	if err := bind(c, &body); err != nil {
		return h.errs.Respond(c, err)
	}
	start, err := booking.ParseStart(body.StartTS)
	if err != nil {
		return h.errs.Respond(c, err)
	}
	id, err := h.svc.Commit(c.Request().Context(), booking.CommitRequest{
		RestaurantID:    body.RestaurantID,
		Name:            body.Name,
		PartySize:       body.PartySize,
		Start:           start,
		DurationMinutes: body.DurationMinutes,
		Source:          body.Source,
		ContactPhone:    body.ContactPhone,
		ContactEmail:    body.ContactEmail,
		Notes:           body.Notes,
		HoldID:          body.HoldID,
	})
	if err != nil {
		return h.errs.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Get handles GET /reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	res, err := h.svc.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.errs.Respond(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles POST /reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.CancelReservation(c.Request().Context(), id); err != nil {
		return h.errs.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": "cancelled"})
}
