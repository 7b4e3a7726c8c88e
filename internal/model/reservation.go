package model

import "time"

// Reservation statuses.  Only confirmed rows take part in the slot
// uniqueness constraint and in capacity usage.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Reservation records a party booked into a restaurant time window.
// Rows are written only by the commit pipeline and afterwards only their
// status changes.
//
// Fields:
//  ID           – uuid primary key.
//  RestaurantID – restaurant being booked.
//  PartySize    – number of covers.
//  StartTS      – window start (UTC).
//  EndTS        – window end, exclusive (UTC).
//  SlotID       – derived from StartTS/EndTS, see slot.Window.ID.
//  Source       – booking channel (phone, web, staff, ...).
type Reservation struct {
	ID           string    `json:"id"`                      // reservation.id
	RestaurantID string    `json:"restaurant_id"`           // reservation.restaurant_id
	PartySize    int       `json:"party_size"`              // reservation.party_size
	Name         string    `json:"name"`                    // reservation.name
	ContactPhone *string   `json:"contact_phone,omitempty"` // reservation.contact_phone (nullable)
	ContactEmail *string   `json:"contact_email,omitempty"` // reservation.contact_email (nullable)
	StartTS      time.Time `json:"start_ts"`                // reservation.start_ts
	EndTS        time.Time `json:"end_ts"`                  // reservation.end_ts
	Status       string    `json:"status"`                  // reservation.status
	SlotID       string    `json:"slot_id"`                 // reservation.slot_id
	Source       string    `json:"source"`                  // reservation.source
	Notes        *string   `json:"notes,omitempty"`         // reservation.notes (nullable)
	CreatedAt    time.Time `json:"created_at"`              // reservation.created_at
}
