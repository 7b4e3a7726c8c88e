package model

import "time"

// Blackout excludes a time range from booking (closures, private events).
type Blackout struct {
	ID           uint64    // blackout.id
	RestaurantID string    // blackout.restaurant_id
	StartTS      time.Time // blackout.start_ts
	EndTS        time.Time // blackout.end_ts
	Reason       string    // blackout.reason
}
