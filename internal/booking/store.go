package booking

import (
	"context"
	"database/sql"

	"github.com/iliyamo/frontdesk/internal/model"
	"github.com/iliyamo/frontdesk/internal/repository"
	"github.com/iliyamo/frontdesk/internal/slot"
)

// Reader answers the advisory questions asked outside a commit.
type Reader interface {
	RuleForWindow(ctx context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error)
	Usage(ctx context.Context, restaurantID string, w slot.Window) (model.Usage, error)
	BlackedOut(ctx context.Context, restaurantID string, w slot.Window) (bool, error)
	SlotBooked(ctx context.Context, restaurantID, slotID string) (bool, error)
}

// Tx is the view of the store inside one commit transaction.
type Tx interface {
	LockRule(ctx context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error)
	BlackedOut(ctx context.Context, restaurantID string, w slot.Window) (bool, error)
	Usage(ctx context.Context, restaurantID string, w slot.Window) (model.Usage, error)
	Insert(ctx context.Context, res *model.Reservation) error
}

// Store is everything the service needs from durable storage.  Errors
// carry the repository sentinels.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(Tx) error) error
	Reservation(ctx context.Context, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) error
	Restaurant(ctx context.Context, id string) (*model.Restaurant, error)
	Ping(ctx context.Context) error
}

// SQLStore implements Store on top of the MySQL repositories.
type SQLStore struct {
	db           *sql.DB
	capacity     *repository.CapacityRepo
	reservations *repository.ReservationRepo
	restaurants  *repository.RestaurantRepo
}

// NewSQLStore wires the repositories sharing db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:           db,
		capacity:     repository.NewCapacityRepo(db),
		reservations: repository.NewReservationRepo(db),
		restaurants:  repository.NewRestaurantRepo(db),
	}
}

func (s *SQLStore) RuleForWindow(ctx context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	return s.capacity.RuleForWindow(ctx, restaurantID, w)
}

func (s *SQLStore) Usage(ctx context.Context, restaurantID string, w slot.Window) (model.Usage, error) {
	return s.capacity.Usage(ctx, restaurantID, w)
}

func (s *SQLStore) BlackedOut(ctx context.Context, restaurantID string, w slot.Window) (bool, error) {
	return s.capacity.BlackedOut(ctx, restaurantID, w)
}

func (s *SQLStore) SlotBooked(ctx context.Context, restaurantID, slotID string) (bool, error) {
	return s.reservations.SlotBooked(ctx, restaurantID, slotID)
}

func (s *SQLStore) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *SQLStore) Cancel(ctx context.Context, id string) error {
	return s.reservations.Cancel(ctx, id)
}

func (s *SQLStore) Restaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	return s.restaurants.GetByID(ctx, id)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.restaurants.Ping(ctx)
}

// WithinTx runs fn in a read-committed transaction.  The transaction is
// rolled back unless fn returns nil and the commit succeeds.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return repository.Classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return repository.Classify(err)
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t sqlTx) LockRule(ctx context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	return t.s.capacity.RuleForWindowTx(ctx, t.tx, restaurantID, w)
}

func (t sqlTx) BlackedOut(ctx context.Context, restaurantID string, w slot.Window) (bool, error) {
	return t.s.capacity.BlackedOutTx(ctx, t.tx, restaurantID, w)
}

func (t sqlTx) Usage(ctx context.Context, restaurantID string, w slot.Window) (model.Usage, error) {
	return t.s.capacity.UsageTx(ctx, t.tx, restaurantID, w)
}

func (t sqlTx) Insert(ctx context.Context, res *model.Reservation) error {
	return t.s.reservations.CreateTx(ctx, t.tx, res)
}
