package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/frontdesk/internal/model"
	"github.com/iliyamo/frontdesk/internal/slot"
)

// CapacityRepo reads capacity rules, confirmed usage and blackouts.  The
// plain methods read through the pool and are only used for advisory
// answers; the Tx variants run inside the commit transaction.
type CapacityRepo struct {
	db *sql.DB
}

// NewCapacityRepo returns a new CapacityRepo bound to the given database.
func NewCapacityRepo(db *sql.DB) *CapacityRepo { return &CapacityRepo{db: db} }

// Overlap uses half-open intervals: start_ts < window.end AND window.start < end_ts.
const ruleQuery = `SELECT id, restaurant_id, start_ts, end_ts, max_covers, max_parties, party_min, party_max
                   FROM capacity_rule
                   WHERE restaurant_id = ? AND start_ts < ? AND ? < end_ts
                   ORDER BY start_ts DESC, id DESC
                   LIMIT 1`

// RuleForWindow returns the most recently defined rule overlapping w, or
// nil when no rule applies.
func (r *CapacityRepo) RuleForWindow(ctx context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	return ruleForWindow(ctx, r.db, ruleQuery, restaurantID, w)
}

// RuleForWindowTx is RuleForWindow inside tx.  The selected rule row is
// locked FOR UPDATE so concurrent commits against the same rule re-read
// usage one after another instead of overshooting the limits together.
func (r *CapacityRepo) RuleForWindowTx(ctx context.Context, tx *sql.Tx, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	return ruleForWindow(ctx, tx, ruleQuery+" FOR UPDATE", restaurantID, w)
}

func ruleForWindow(ctx context.Context, q querier, query, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	var rule model.CapacityRule
	err := q.QueryRowContext(ctx, query, restaurantID, w.End, w.Start).Scan(
		&rule.ID, &rule.RestaurantID, &rule.StartTS, &rule.EndTS,
		&rule.MaxCovers, &rule.MaxParties, &rule.PartyMin, &rule.PartyMax,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &rule, nil
}

const usageQuery = `SELECT COALESCE(SUM(party_size), 0), COUNT(*)
                    FROM reservation
                    WHERE restaurant_id = ? AND status = 'confirmed'
                      AND start_ts < ? AND ? < end_ts`

// Usage sums covers and counts parties of confirmed reservations
// overlapping w.
func (r *CapacityRepo) Usage(ctx context.Context, restaurantID string, w slot.Window) (model.Usage, error) {
	return usage(ctx, r.db, restaurantID, w)
}

// UsageTx is Usage inside tx.
func (r *CapacityRepo) UsageTx(ctx context.Context, tx *sql.Tx, restaurantID string, w slot.Window) (model.Usage, error) {
	return usage(ctx, tx, restaurantID, w)
}

func usage(ctx context.Context, q querier, restaurantID string, w slot.Window) (model.Usage, error) {
	var u model.Usage
	if err := q.QueryRowContext(ctx, usageQuery, restaurantID, w.End, w.Start).Scan(&u.Covers, &u.Parties); err != nil {
		return model.Usage{}, Classify(err)
	}
	return u, nil
}

const blackoutQuery = `SELECT 1 FROM blackout
                       WHERE restaurant_id = ? AND start_ts < ? AND ? < end_ts
                       LIMIT 1`

// BlackedOut reports whether any blackout overlaps w.
func (r *CapacityRepo) BlackedOut(ctx context.Context, restaurantID string, w slot.Window) (bool, error) {
	return blackedOut(ctx, r.db, restaurantID, w)
}

// BlackedOutTx is BlackedOut inside tx.
func (r *CapacityRepo) BlackedOutTx(ctx context.Context, tx *sql.Tx, restaurantID string, w slot.Window) (bool, error) {
	return blackedOut(ctx, tx, restaurantID, w)
}

func blackedOut(ctx context.Context, q querier, restaurantID string, w slot.Window) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, blackoutQuery, restaurantID, w.End, w.Start).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, Classify(err)
	}
	return true, nil
}
