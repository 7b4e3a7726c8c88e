package booking

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/frontdesk/internal/slot"
)

// Request bounds.
const (
	MinPartySize       = 1
	MaxPartySize       = 50
	MinDurationMinutes = 15
	MaxDurationMinutes = 240
	MaxNameLen         = 200
	MaxPhoneLen        = 32
	MaxEmailLen        = 254
	MaxNotesLen        = 1024
	DefaultSource      = "phone"
	maxSourceLen       = 32
	maxRestaurantIDLen = 36
)

// ParseStart parses an RFC 3339 timestamp.  A value without a zone offset
// is rejected rather than guessed.
func ParseStart(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("start_ts is required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalid("start_ts must be RFC 3339 and include timezone information")
	}
	return t, nil
}

// AvailabilityRequest asks for a hold on one window.
type AvailabilityRequest struct {
	RestaurantID    string
	PartySize       int
	Start           time.Time
	DurationMinutes int
}

func (r AvailabilityRequest) Validate() error {
	return validateSlot(r.RestaurantID, r.PartySize, r.Start, r.DurationMinutes)
}

func (r AvailabilityRequest) window() slot.Window {
	return slot.NewWindow(r.Start, time.Duration(r.DurationMinutes)*time.Minute)
}

// CommitRequest books a window.  HoldID is optional; when it names the
// live hold for the same key the commit consumes it instead of acquiring
// a new one.
type CommitRequest struct {
	RestaurantID    string
	Name            string
	PartySize       int
	Start           time.Time
	DurationMinutes int
	Source          string
	ContactPhone    *string
	ContactEmail    *string
	Notes           *string
	HoldID          string
}

// Validate checks field bounds and fills in the default source.
func (r *CommitRequest) Validate() error {
	if err := validateSlot(r.RestaurantID, r.PartySize, r.Start, r.DurationMinutes); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(r.Name)
	if n := utf8.RuneCountInString(r.Name); n < 1 || n > MaxNameLen {
		return invalid("name must be between 1 and %d characters", MaxNameLen)
	}
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if utf8.RuneCountInString(r.Source) > maxSourceLen {
		return invalid("source must be at most %d characters", maxSourceLen)
	}
	if err := optionalLen("contact_phone", r.ContactPhone, MaxPhoneLen); err != nil {
		return err
	}
	if err := optionalLen("contact_email", r.ContactEmail, MaxEmailLen); err != nil {
		return err
	}
	return optionalLen("notes", r.Notes, MaxNotesLen)
}

func (r CommitRequest) window() slot.Window {
	return slot.NewWindow(r.Start, time.Duration(r.DurationMinutes)*time.Minute)
}

// ReleaseRequest gives back a hold obtained from CheckAvailability.
type ReleaseRequest struct {
	RestaurantID    string
	PartySize       int
	Start           time.Time
	DurationMinutes int
	HoldID          string
}

func (r ReleaseRequest) Validate() error {
	if err := validateSlot(r.RestaurantID, r.PartySize, r.Start, r.DurationMinutes); err != nil {
		return err
	}
	if strings.TrimSpace(r.HoldID) == "" {
		return invalid("hold_id is required")
	}
	return nil
}

func (r ReleaseRequest) window() slot.Window {
	return slot.NewWindow(r.Start, time.Duration(r.DurationMinutes)*time.Minute)
}

func validateSlot(restaurantID string, partySize int, start time.Time, minutes int) error {
	if id := strings.TrimSpace(restaurantID); id == "" || len(id) > maxRestaurantIDLen {
		return invalid("restaurant_id is required")
	}
	if partySize < MinPartySize || partySize > MaxPartySize {
		return invalid("party_size must be between %d and %d", MinPartySize, MaxPartySize)
	}
	if start.IsZero() {
		return invalid("start_ts is required")
	}
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return invalid("duration_minutes must be between %d and %d", MinDurationMinutes, MaxDurationMinutes)
	}
	return nil
}

func optionalLen(field string, v *string, limit int) error {
	if v != nil && utf8.RuneCountInString(*v) > limit {
		return invalid("%s must be at most %d characters", field, limit)
	}
	return nil
}
