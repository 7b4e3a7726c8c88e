package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/frontdesk/internal/hold"
	"github.com/iliyamo/frontdesk/internal/repository"
)

// Outcomes returned by the booking core.  Each maps to one stable
// transport status; anything else is an internal failure.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrBackingStoreUnavailable = errors.New("backing store unavailable")
	ErrUnbookable              = errors.New("no capacity rule configured for slot")
	ErrSlotHeld                = errors.New("slot temporarily held by another request")
	ErrCapacityExceeded        = errors.New("capacity exceeded")
	ErrSlotAlreadyBooked       = errors.New("slot already booked")
	ErrSlotUnavailable         = errors.New("slot unavailable")
	ErrBlackedOut              = errors.New("slot falls inside a blackout")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrRestaurantNotFound      = errors.New("restaurant not found")
	ErrAlreadyCancelled        = errors.New("reservation already cancelled")
)

// UnavailableError is the availability conflict.  It matches
// ErrSlotUnavailable and unwraps to the concrete Reason (ErrSlotHeld,
// ErrCapacityExceeded, ErrBlackedOut or ErrSlotAlreadyBooked).
type UnavailableError struct {
	Message    string
	Alternates []time.Time
	Reason     error
}

func (e *UnavailableError) Error() string { return e.Message }

func (e *UnavailableError) Unwrap() error { return e.Reason }

func (e *UnavailableError) Is(target error) bool { return target == ErrSlotUnavailable }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeFailure tags errors that mean Redis or MySQL could not answer.
func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrUnavailable) ||
		errors.Is(err, hold.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrBackingStoreUnavailable, err)
	}
	return err
}
