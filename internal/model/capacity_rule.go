package model

import "time"

// CapacityRule caps simultaneous covers and parties for a restaurant over
// a time range.  Rules are maintained by the admin side; the booking core
// only reads them.  A window that overlaps no rule cannot be booked.
type CapacityRule struct {
	ID           uint64    // capacity_rule.id
	RestaurantID string    // capacity_rule.restaurant_id
	StartTS      time.Time // capacity_rule.start_ts
	EndTS        time.Time // capacity_rule.end_ts
	MaxCovers    int       // capacity_rule.max_covers
	MaxParties   int       // capacity_rule.max_parties
	PartyMin     int       // capacity_rule.party_min
	PartyMax     int       // capacity_rule.party_max
}

// AcceptsParty reports whether size is inside the rule's party bounds.  A
// zero bound is treated as unset.
func (r CapacityRule) AcceptsParty(size int) bool {
	if r.PartyMin > 0 && size < r.PartyMin {
		return false
	}
	if r.PartyMax > 0 && size > r.PartyMax {
		return false
	}
	return true
}

// Usage is the confirmed load overlapping a window.
type Usage struct {
	Covers  int // sum of party_size
	Parties int // number of reservations
}
