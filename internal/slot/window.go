// Package slot holds the identity of a bookable time window.  The slot
// identifier (used by the unique index on reservations) and the hold key
// (used by the Redis hold manager) are both derived here so the advisory
// and durable layers always agree on which slot is "the same".
package slot

import (
	"fmt"
	"time"
)

// minuteLayout truncates a UTC timestamp to minute granularity.
const minuteLayout = "200601021504"

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow converts start to UTC and returns [start, start+d).
func NewWindow(start time.Time, d time.Duration) Window {
	s := start.UTC()
	return Window{Start: s, End: s.Add(d)}
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Overlaps reports whether w and o share any instant.  Back-to-back
// windows (w.End == o.Start) do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Shift returns the window moved forward by d.
func (w Window) Shift(d time.Duration) Window {
	return Window{Start: w.Start.Add(d), End: w.End.Add(d)}
}

// ID is the slot identifier stored on reservation rows.  It ignores
// party size and anything below the minute.
func (w Window) ID() string {
	return minute(w.Start) + "-" + minute(w.End)
}

// HoldKey is the Redis key of the advisory hold for a restaurant, window
// and party size.  Requests differing only in party size get different
// keys; the unique index on ID() is the backstop for that case.
func HoldKey(restaurantID string, w Window, partySize int) string {
	return fmt.Sprintf("hold:%s:%s:%s:%d", restaurantID, minute(w.Start), minute(w.End), partySize)
}

func minute(t time.Time) string { return t.UTC().Format(minuteLayout) }
