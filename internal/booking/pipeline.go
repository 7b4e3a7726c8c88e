package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/frontdesk/internal/model"
	"github.com/iliyamo/frontdesk/internal/repository"
	"github.com/iliyamo/frontdesk/internal/slot"
)

// Transactor opens commit transactions.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

// CommitInput is a validated booking ready to be written.
type CommitInput struct {
	RestaurantID string
	Window       slot.Window
	PartySize    int
	Name         string
	Source       string
	ContactPhone *string
	ContactEmail *string
	Notes        *string
}

// Pipeline writes confirmed reservations.  Capacity is re-checked inside
// the transaction with the applicable rule row locked, so commits against
// the same rule serialise on it; the unique index on confirmed slots is
// the last word on duplicates.
type Pipeline struct {
	tx  Transactor
	now func() time.Time
}

func NewPipeline(tx Transactor) *Pipeline {
	return &Pipeline{tx: tx, now: time.Now}
}

// Commit inserts a confirmed reservation and returns the stored row.
func (p *Pipeline) Commit(ctx context.Context, in CommitInput) (*model.Reservation, error) {
	res := &model.Reservation{
		ID:           uuid.NewString(),
		RestaurantID: in.RestaurantID,
		PartySize:    in.PartySize,
		Name:         in.Name,
		ContactPhone: in.ContactPhone,
		ContactEmail: in.ContactEmail,
		StartTS:      in.Window.Start,
		EndTS:        in.Window.End,
		Status:       model.StatusConfirmed,
		SlotID:       in.Window.ID(),
		Source:       in.Source,
		Notes:        in.Notes,
		CreatedAt:    p.now().UTC().Truncate(time.Second),
	}
	err := p.tx.WithinTx(ctx, func(tx Tx) error {
		rule, err := tx.LockRule(ctx, in.RestaurantID, in.Window)
		if err != nil {
			return err
		}
		if rule == nil {
			return ErrUnbookable
		}
		out, err := tx.BlackedOut(ctx, in.RestaurantID, in.Window)
		if err != nil {
			return err
		}
		u, err := tx.Usage(ctx, in.RestaurantID, in.Window)
		if err != nil {
			return err
		}
		if err := verdict(rule, u, out, in.PartySize); err != nil {
			return err
		}
		return tx.Insert(ctx, res)
	})
	if err != nil {
		return nil, commitOutcome(err)
	}
	return res, nil
}

func commitOutcome(err error) error {
	switch {
	case errors.Is(err, ErrUnbookable), errors.Is(err, ErrBlackedOut), errors.Is(err, ErrCapacityExceeded):
		return err
	case errors.Is(err, repository.ErrSlotTaken):
		return fmt.Errorf("%w: %w", ErrSlotAlreadyBooked, err)
	case errors.Is(err, repository.ErrCheckViolation):
		return invalid("reservation violates a table constraint")
	}
	if f := storeFailure(err); errors.Is(f, ErrBackingStoreUnavailable) {
		return f
	}
	return fmt.Errorf("commit reservation: %w", err)
}
