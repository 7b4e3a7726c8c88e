package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/frontdesk/internal/model"
)

// ReservationRepo persists reservations.  Inserts happen only inside the
// commit transaction; afterwards rows change status but are never deleted.
// All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts res within tx.  ID, SlotID and Status must already be
// set by the caller.  A duplicate confirmed slot surfaces as ErrSlotTaken.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservation (id, restaurant_id, party_size, name, contact_phone, contact_email,
                                        start_ts, end_ts, status, slot_id, source, notes, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := tx.ExecContext(ctx, q,
		res.ID, res.RestaurantID, res.PartySize, res.Name, res.ContactPhone, res.ContactEmail,
		res.StartTS.UTC(), res.EndTS.UTC(), res.Status, res.SlotID, res.Source, res.Notes, res.CreatedAt,
	)
	return Classify(err)
}

// SlotBooked reports whether a confirmed reservation already owns slotID.
func (r *ReservationRepo) SlotBooked(ctx context.Context, restaurantID, slotID string) (bool, error) {
	const q = `SELECT 1 FROM reservation
               WHERE restaurant_id = ? AND slot_id = ? AND status = 'confirmed'
               LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, q, restaurantID, slotID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, Classify(err)
	}
	return true, nil
}

// GetByID returns the reservation with the given id or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, restaurant_id, party_size, name, contact_phone, contact_email,
                      start_ts, end_ts, status, slot_id, source, notes, created_at
               FROM reservation WHERE id = ?`
	var (
		res                 model.Reservation
		phone, email, notes sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.RestaurantID, &res.PartySize, &res.Name, &phone, &email,
		&res.StartTS, &res.EndTS, &res.Status, &res.SlotID, &res.Source, &notes, &res.CreatedAt,
	)
	if err != nil {
		return nil, Classify(err)
	}
	res.ContactPhone = nullable(phone)
	res.ContactEmail = nullable(email)
	res.Notes = nullable(notes)
	res.StartTS = res.StartTS.UTC()
	res.EndTS = res.EndTS.UTC()
	return &res, nil
}

// Cancel moves a confirmed reservation to cancelled, which drops it out of
// the slot unique index and out of capacity usage.  It returns ErrNotFound
// for an unknown id and ErrNoChange when the row is already cancelled.
func (r *ReservationRepo) Cancel(ctx context.Context, id string) error {
	const upd = `UPDATE reservation SET status = 'cancelled' WHERE id = ? AND status = 'confirmed'`
	result, err := r.db.ExecContext(ctx, upd, id)
	if err != nil {
		return Classify(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Classify(err)
	}
	if n > 0 {
		return nil
	}
	var status string
	if err := r.db.QueryRowContext(ctx, `SELECT status FROM reservation WHERE id = ?`, id).Scan(&status); err != nil {
		return Classify(err)
	}
	return ErrNoChange
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
