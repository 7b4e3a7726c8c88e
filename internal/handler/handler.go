package handler

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/frontdesk/internal/booking"
	"github.com/iliyamo/frontdesk/internal/model"
)

// BookingService is the part of booking.Service the HTTP layer calls.
type BookingService interface {
	CheckAvailability(ctx context.Context, req booking.AvailabilityRequest) (*booking.HoldGrant, error)
	ReleaseHold(ctx context.Context, req booking.ReleaseRequest) error
	Commit(ctx context.Context, req booking.CommitRequest) (string, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id string) error
	GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error)
	Ready(ctx context.Context) error
}

var _ BookingService = (*booking.Service)(nil)

// bind decodes the JSON body; decoding failures are invalid input.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", booking.ErrInvalidInput)
	}
	return nil
}

// slotBody is the window shared by every availability and booking body.
type slotBody struct {
	RestaurantID    string `json:"restaurant_id"`
	PartySize       int    `json:"party_size"`
	StartTS         string `json:"start_ts"`
	DurationMinutes int    `json:"duration_minutes"`
}
