// Package events carries reservation.confirmed notifications to RabbitMQ or
// Kafka and back into an audit log.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/frontdesk/internal/model"
)

// ConfirmedTopic is the default queue / topic name.
const ConfirmedTopic = "reservation.confirmed"

// ReservationConfirmed is published after a reservation commits.  It has
// enough for downstream consumers to notify or audit without reading the
// database.
type ReservationConfirmed struct {
	ReservationID string `json:"reservation_id"`
	RestaurantID  string `json:"restaurant_id"`
	SlotID        string `json:"slot_id"`
	PartySize     int    `json:"party_size"`
	Name          string `json:"name"`
	Source        string `json:"source"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// NewReservationConfirmed builds the event for res.  Times are RFC 3339 UTC.
func NewReservationConfirmed(res *model.Reservation) ReservationConfirmed {
	return ReservationConfirmed{
		ReservationID: res.ID,
		RestaurantID:  res.RestaurantID,
		SlotID:        res.SlotID,
		PartySize:     res.PartySize,
		Name:          res.Name,
		Source:        res.Source,
		StartsAt:      res.StartTS.UTC().Format(time.RFC3339),
		EndsAt:        res.EndTS.UTC().Format(time.RFC3339),
		ConfirmedAt:   res.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// AuditLine renders ev as one human-friendly log line.
func (ev ReservationConfirmed) AuditLine() string {
	return fmt.Sprintf("[%s] Reservation confirmed | reservation_id=%s | restaurant_id=%s | slot=%s | party=%d | source=%s | name=%q\n",
		ev.ConfirmedAt, ev.ReservationID, ev.RestaurantID, ev.SlotID, ev.PartySize, ev.Source, ev.Name)
}

// Publisher sends confirmed reservations to a broker.
type Publisher interface {
	PublishConfirmed(ctx context.Context, res *model.Reservation) error
	Close() error
}
