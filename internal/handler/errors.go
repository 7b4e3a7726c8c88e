package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/frontdesk/internal/booking"
	"github.com/iliyamo/frontdesk/internal/middleware"
)

// ErrorInfo is the HTTP rendering of one error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ErrorMapping maps one sentinel to its HTTP rendering.
type ErrorMapping struct {
	Error   error
	Status  int
	Code    string
	Message string
}

// ErrorMapper translates booking errors into HTTP responses.  Mappings are
// checked in order with errors.Is, so more specific sentinels go first.
type ErrorMapper struct {
	mappings []ErrorMapping
	fallback ErrorInfo
	log      *slog.Logger
}

// NewErrorMapper returns a mapper with no mappings and a 500 fallback.
func NewErrorMapper(log *slog.Logger) *ErrorMapper {
	if log == nil {
		log = slog.Default()
	}
	return &ErrorMapper{
		fallback: ErrorInfo{Status: http.StatusInternalServerError, Code: "internal", Message: "internal server error"},
		log:      log,
	}
}

// WithMapping appends a mapping.
func (m *ErrorMapper) WithMapping(err error, status int, code, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Code: code, Message: message})
	return m
}

// BookingErrors is the mapper for the booking API.
func BookingErrors(log *slog.Logger) *ErrorMapper {
	return NewErrorMapper(log).
		WithMapping(booking.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable", "slot unavailable").
		WithMapping(booking.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", "invalid input").
		WithMapping(booking.ErrBackingStoreUnavailable, http.StatusServiceUnavailable, "backing_store_unavailable", "service temporarily unavailable").
		WithMapping(booking.ErrUnbookable, http.StatusBadRequest, "unbookable", "no capacity rule configured for this slot").
		WithMapping(booking.ErrSlotHeld, http.StatusConflict, "slot_held", "slot temporarily held by another request").
		WithMapping(booking.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded", "capacity exceeded").
		WithMapping(booking.ErrSlotAlreadyBooked, http.StatusConflict, "slot_already_booked", "slot already booked").
		WithMapping(booking.ErrBlackedOut, http.StatusConflict, "blacked_out", "slot falls inside a blackout").
		WithMapping(booking.ErrReservationNotFound, http.StatusNotFound, "not_found", "reservation not found").
		WithMapping(booking.ErrRestaurantNotFound, http.StatusNotFound, "not_found", "restaurant not found").
		WithMapping(booking.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled", "reservation already cancelled")
}

// Map converts err to its HTTP rendering.  Invalid input keeps the
// validator's detail; every other message is fixed.
func (m *ErrorMapper) Map(err error) ErrorInfo {
	for _, mapping := range m.mappings {
		if !errors.Is(err, mapping.Error) {
			continue
		}
		info := ErrorInfo{Status: mapping.Status, Code: mapping.Code, Message: mapping.Message}
		if errors.Is(err, booking.ErrInvalidInput) {
			info.Message = err.Error()
		}
		return info
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: "backing_store_unavailable", Message: "request timeout"}
	}
	return m.fallback
}

// Respond writes err as JSON.  Unavailability conflicts carry the
// alternates; internal errors are logged and never echoed.
func (m *ErrorMapper) Respond(c echo.Context, err error) error {
	info := m.Map(err)
	body := echo.Map{"error": info.Message, "code": info.Code}

	var ue *booking.UnavailableError
	if errors.As(err, &ue) {
		alts := make([]string, 0, len(ue.Alternates))
		for _, a := range ue.Alternates {
			alts = append(alts, a.UTC().Format(time.RFC3339))
		}
		body["message"] = ue.Message
		body["alternates"] = alts
		if reason := m.Map(ue.Reason); reason.Code != m.fallback.Code {
			body["reason"] = reason.Code
		}
	}

	if info.Status >= http.StatusInternalServerError {
		level := slog.LevelWarn
		if info.Code == m.fallback.Code {
			level = slog.LevelError
		}
		m.log.Log(c.Request().Context(), level, "request failed",
			slog.String("request_id", middleware.GetRequestID(c)),
			slog.String("method", c.Request().Method),
			slog.String("route", c.Path()),
			slog.Any("error", err))
	}
	return c.JSON(info.Status, body)
}
