package model

import "time"

// Hold is an advisory reservation-of-intent kept only in Redis.  Holds
// stop two near-simultaneous requests from both paying for a commit
// transaction, but the unique index on reservations is what actually
// prevents double booking.
//
// Fields:
//  Key       – slot.HoldKey for restaurant, window and party size.
//  HolderID  – opaque token returned to the client as hold_id.
//  ExpiresIn – time left before Redis drops the key.
type Hold struct {
	Key       string
	HolderID  string
	ExpiresIn time.Duration
}
